package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// catalogRow una línea del catálogo: sku;name;price;opening_qty.
type catalogRow struct {
	Line       int
	SKU        string
	Name       string
	Price      decimal.Decimal
	OpeningQty int
}

// decodeCatalog devuelve el contenido en UTF-8. Si no es UTF-8 válido se asume ISO-8859-1,
// que es como exportan las hojas de cálculo en Windows.
func decodeCatalog(raw []byte) (io.Reader, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return bytes.NewReader(raw), nil
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("decodificar ISO-8859-1: %w", err)
	}
	return bytes.NewReader(decoded), nil
}

// parseCatalog lee el CSV separado por ';'. La primera línea se ignora si es el encabezado.
// Acepta precios con coma decimal ("1250,50").
func parseCatalog(r io.Reader) ([]catalogRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var (
		rows []catalogRow
		errs []error
		line int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		row, err := parseRow(line, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, errors.Join(errs...)
}

func parseRow(line int, rec []string) (catalogRow, error) {
	row := catalogRow{Line: line, SKU: strings.TrimSpace(rec[0]), Name: strings.TrimSpace(rec[1])}
	if row.SKU == "" || row.Name == "" {
		return row, fmt.Errorf("línea %d: sku y nombre son obligatorios", line)
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[2]), ",", "."))
	if err != nil || price.IsNegative() {
		return row, fmt.Errorf("línea %d: precio inválido %q", line, rec[2])
	}
	row.Price = price
	qty := strings.TrimSpace(rec[3])
	if qty != "" {
		row.OpeningQty, err = strconv.Atoi(qty)
		if err != nil || row.OpeningQty < 0 {
			return row, fmt.Errorf("línea %d: existencia inicial inválida %q", line, rec[3])
		}
	}
	return row, nil
}
