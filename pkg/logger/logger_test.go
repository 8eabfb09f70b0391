package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logger.ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel("desconocido"))
	assert.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
}

func TestNew_JSONEnProduccion(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Out: &buf})

	zl := l.Component("ledger")
	zl.Info().Str("product_id", "p1").Msg("movimiento registrado")
	l.Debug().Msg("no debe aparecer")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "p1", line["product_id"])
	assert.Equal(t, "movimiento registrado", line["message"])
}
