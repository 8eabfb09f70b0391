// migrate aplica las migraciones SQL embebidas sobre la base configurada.
//
// Uso: go run ./cmd/migrate
package main

import (
	"context"
	"time"

	"github.com/jhoicas/erp-api/internal/infrastructure/postgres"
	"github.com/jhoicas/erp-api/pkg/config"
	"github.com/jhoicas/erp-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	log.Info().Msg("migraciones aplicadas")
}
