package main

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/infrastructure/memory"
)

func TestParseCatalog_Latin1ConEncabezado(t *testing.T) {
	// "piñón" codificado en ISO-8859-1.
	raw := []byte("sku;name;price;opening_qty\nTRN-1;Tornillo pi\xf1\xf3n;1250,50;40\nCLV-2;Clavo;300;\n")
	r, err := decodeCatalog(raw)
	require.NoError(t, err)

	rows, err := parseCatalog(r)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Tornillo piñón", rows[0].Name)
	assert.Equal(t, "1250.5", rows[0].Price.String())
	assert.Equal(t, 40, rows[0].OpeningQty)
	assert.Equal(t, 0, rows[1].OpeningQty)
}

func TestParseCatalog_FilasInvalidas(t *testing.T) {
	rows, err := parseCatalog(strings.NewReader("A;Uno;10;1\n;SinSku;1;1\nB;Dos;-1;0\nC;Tres;5;x\nD;Cuatro;5;2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "línea 2")
	assert.Contains(t, err.Error(), "línea 3")
	assert.Contains(t, err.Error(), "línea 4")
	require.Len(t, rows, 2)
	assert.Equal(t, "D", rows[1].SKU)
}

func TestImportCatalog_ExistenciaInicialPorLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	products := usecase.NewProductUseCase(store.TxRunner(), store.Products(), 5, zerolog.Nop())
	ledger := inventory.NewService(store.TxRunner(), store.Inventory(), store.Movements(), zerolog.Nop(),
		inventory.Options{DefaultReorderLevel: 5, MovementsMaxLimit: 100})

	rows, err := parseCatalog(strings.NewReader("A;Alicate;15000;7\nB;Brocha;8000;0\n"))
	require.NoError(t, err)

	stats := importCatalog(ctx, products, ledger, rows, zerolog.Nop())
	assert.Equal(t, importStats{created: 2}, stats)

	// Segunda corrida: todo existe.
	stats = importCatalog(ctx, products, ledger, rows, zerolog.Nop())
	assert.Equal(t, importStats{skipped: 2}, stats)

	movs, err := store.Movements().ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, openingStockReason, movs[0].Reason)
	assert.Equal(t, 7, movs[0].NewQuantity)
}
