// Package excel exporta el inventario a .xlsx con excelize.
package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain/entity"
)

var _ inventory.WorkbookExporter = (*InventoryExporter)(nil)

const (
	sheetSummary   = "Inventario"
	sheetMovements = "Movimientos"
)

// InventoryExporter arma un libro con dos hojas: resumen de existencias y movimientos recientes.
type InventoryExporter struct{}

// NewInventoryExporter construye el exportador.
func NewInventoryExporter() *InventoryExporter { return &InventoryExporter{} }

// Export devuelve el .xlsx en memoria.
func (e *InventoryExporter) Export(summary []entity.InventorySummaryItem, movements []*entity.InventoryMovement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// La hoja por defecto pasa a ser el resumen.
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetMovements); err != nil {
		return nil, err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"00467F"}},
	})
	if err != nil {
		return nil, err
	}
	lowStock, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FCE4D6"}},
	})
	if err != nil {
		return nil, err
	}

	if err := writeRow(f, sheetSummary, 1, "Producto", "ID", "Cantidad", "Nivel de reorden", "Stock bajo", "Última actualización"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetSummary, "A1", "F1", header); err != nil {
		return nil, err
	}
	for i, it := range summary {
		r := i + 2
		low := "No"
		if it.IsLowStock {
			low = "Sí"
		}
		if err := writeRow(f, sheetSummary, r, it.ProductName, it.ProductID, it.Quantity, it.ReorderLevel, low,
			it.LastUpdated.Format("2006-01-02 15:04:05")); err != nil {
			return nil, err
		}
		if it.IsLowStock {
			if err := f.SetCellStyle(sheetSummary, fmt.Sprintf("A%d", r), fmt.Sprintf("F%d", r), lowStock); err != nil {
				return nil, err
			}
		}
	}
	_ = f.SetColWidth(sheetSummary, "A", "B", 38)
	_ = f.SetColWidth(sheetSummary, "C", "F", 18)

	if err := writeRow(f, sheetMovements, 1, "Fecha", "Producto", "Tipo", "Cantidad", "Anterior", "Nueva", "Motivo", "Referencia", "Notas"); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetMovements, "A1", "I1", header); err != nil {
		return nil, err
	}
	for i, m := range movements {
		if err := writeRow(f, sheetMovements, i+2, m.Date.Format("2006-01-02 15:04:05"), m.ProductName, m.Type, m.Amount,
			m.PreviousQuantity, m.NewQuantity, m.Reason, m.Reference, m.Notes); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(sheetMovements, "A", "B", 30)
	_ = f.SetColWidth(sheetMovements, "G", "I", 30)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel: escribir libro: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
