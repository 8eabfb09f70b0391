// Package metrics expone contadores Prometheus del ledger y de la API HTTP.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain/entity"
)

var _ inventory.LedgerObserver = (*Metrics)(nil)

// Metrics agrupa los colectores en un registro propio (no el global), de modo que los
// tests puedan crear instancias independientes.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	movementsTotal     *prometheus.CounterVec
	movementUnitsTotal *prometheus.CounterVec
	rejectionsTotal    *prometheus.CounterVec
	reorderChanges     prometheus.Counter
}

// New registra los colectores con el prefijo dado (p. ej. "erp").
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		movementsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_movements_total",
			Help: "Committed inventory movements",
		}, []string{"type"}),
		movementUnitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_movement_units_total",
			Help: "Units moved by committed inventory movements",
		}, []string{"type"}),
		rejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_ledger_rejections_total",
			Help: "Stock-out requests rejected by the ledger",
		}, []string{"reason"}),
		reorderChanges: f.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_ledger_reorder_level_changes_total",
			Help: "Reorder level updates",
		}),
	}
}

// MovementRecorded implementa inventory.LedgerObserver.
func (m *Metrics) MovementRecorded(_ context.Context, mov *entity.InventoryMovement) {
	m.movementsTotal.WithLabelValues(mov.Type).Inc()
	m.movementUnitsTotal.WithLabelValues(mov.Type).Add(float64(mov.Amount))
}

// StockRejected implementa inventory.LedgerObserver.
func (m *Metrics) StockRejected(context.Context, string, int, int) {
	m.rejectionsTotal.WithLabelValues("insufficient_stock").Inc()
}

// ReorderLevelChanged implementa inventory.LedgerObserver.
func (m *Metrics) ReorderLevelChanged(context.Context, *entity.Inventory) {
	m.reorderChanges.Inc()
}

// Middleware registra conteo y duración por ruta. Usa la ruta declarada (":id") y no la URL,
// para no multiplicar las series.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		path := c.Route().Path
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler expone el registro en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry acceso al registro (tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
