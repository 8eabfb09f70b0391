package inventory

import (
	"context"
	"fmt"
	"time"
)

// exportTimeout límite para armar el libro completo.
const exportTimeout = 30 * time.Second

// ExportUseCase genera el libro de inventario descargable.
type ExportUseCase struct {
	ledger   *Service
	exporter WorkbookExporter
}

// NewExportUseCase construye el caso de uso.
func NewExportUseCase(ledger *Service, exporter WorkbookExporter) *ExportUseCase {
	return &ExportUseCase{ledger: ledger, exporter: exporter}
}

// Export devuelve (contenido, nombre de archivo). movementsLimit <= 0 usa el máximo permitido.
func (uc *ExportUseCase) Export(ctx context.Context, movementsLimit int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	summary, err := uc.ledger.GetInventorySummary(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("export: resumen: %w", err)
	}
	movs, err := uc.ledger.RecentMovements(ctx, movementsLimit)
	if err != nil {
		return nil, "", fmt.Errorf("export: movimientos: %w", err)
	}
	raw, err := uc.exporter.Export(summary, movs)
	if err != nil {
		return nil, "", err
	}
	return raw, fmt.Sprintf("inventario_%s.xlsx", uc.ledger.now().UTC().Format("20060102")), nil
}
