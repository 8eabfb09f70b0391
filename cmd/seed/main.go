// seed importa un catálogo de productos desde CSV y registra la existencia inicial
// de cada uno como entrada del ledger ("Opening stock").
//
// Uso: go run ./cmd/seed [ruta/catalogo.csv]
// Formato: sku;name;price;opening_qty (UTF-8 o ISO-8859-1). Los SKU existentes se omiten.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/infrastructure/postgres"
	"github.com/jhoicas/erp-api/pkg/config"
	"github.com/jhoicas/erp-api/pkg/logger"
)

const openingStockReason = "Opening stock"

func main() {
	csvPath := "catalogo.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	raw, err := os.ReadFile(csvPath)
	if err != nil {
		log.Fatal().Err(err).Str("file", csvPath).Msg("abrir catálogo")
	}
	r, err := decodeCatalog(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("decodificar catálogo")
	}
	rows, err := parseCatalog(r)
	if err != nil {
		// Las filas válidas se importan igual.
		log.Warn().Err(err).Msg("filas con errores omitidas")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	txRunner := postgres.NewTxRunner(pool, cfg.DB.TxTimeout())
	products := usecase.NewProductUseCase(txRunner, postgres.NewProductRepository(pool), cfg.Inventory.DefaultReorderLevel, log.Zerolog())
	ledger := inventory.NewService(txRunner, postgres.NewInventoryRepository(pool), postgres.NewInventoryMovementRepository(pool),
		log.Zerolog(), inventory.Options{
			DefaultReorderLevel: cfg.Inventory.DefaultReorderLevel,
			MovementsMaxLimit:   cfg.Inventory.MovementsMaxLimit,
		})

	stats := importCatalog(ctx, products, ledger, rows, log.Component("seed"))
	log.Info().
		Int("created", stats.created).
		Int("skipped", stats.skipped).
		Int("failed", stats.failed).
		Str("file", csvPath).
		Msg("catálogo importado")
	if stats.failed > 0 {
		os.Exit(1)
	}
}

type importStats struct{ created, skipped, failed int }

// importCatalog crea cada producto y, si trae existencia inicial, la registra por el ledger.
func importCatalog(ctx context.Context, products *usecase.ProductUseCase, ledger *inventory.Service, rows []catalogRow, log zerolog.Logger) importStats {
	var stats importStats
	for _, row := range rows {
		p, err := products.Create(ctx, dto.CreateProductRequest{
			SKU:     row.SKU,
			Name:    row.Name,
			Price:   row.Price,
			TaxRate: decimal.NewFromInt(19),
		})
		if errors.Is(err, domain.ErrDuplicate) {
			stats.skipped++
			log.Debug().Str("sku", row.SKU).Msg("sku existente, se omite")
			continue
		}
		if err != nil {
			stats.failed++
			log.Error().Err(err).Int("line", row.Line).Str("sku", row.SKU).Msg("crear producto")
			continue
		}
		stats.created++
		if row.OpeningQty == 0 {
			continue
		}
		if _, err := ledger.StockIn(ctx, inventory.MovementInput{
			ProductID:   p.ID,
			ProductName: p.Name,
			Amount:      row.OpeningQty,
			Reason:      openingStockReason,
			Reference:   "seed",
		}); err != nil {
			stats.failed++
			log.Error().Err(err).Int("line", row.Line).Str("sku", row.SKU).Msg("existencia inicial")
		}
	}
	return stats
}
