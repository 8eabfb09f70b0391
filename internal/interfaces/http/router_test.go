package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/application/analytics"
	"github.com/jhoicas/erp-api/internal/application/auth"
	"github.com/jhoicas/erp-api/internal/application/billing"
	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/infrastructure/cache"
	"github.com/jhoicas/erp-api/internal/infrastructure/excel"
	"github.com/jhoicas/erp-api/internal/infrastructure/memory"
	"github.com/jhoicas/erp-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/erp-api/internal/interfaces/http"
)

type apiFixture struct {
	app    *fiber.App
	store  *memory.Store
	ledger *inventory.Service
	tokens map[string]string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	dash := analytics.NewDashboardUseCase(store.Dashboard(), store.Inventory(), store.Movements(), store.Invoices(), nil, time.Minute, log)
	ledger := inventory.NewService(store.TxRunner(), store.Inventory(), store.Movements(), log,
		inventory.Options{DefaultReorderLevel: 5, MovementsMaxLimit: 100}, dash.Observer())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:      auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer}).WithBcryptCost(4),
		UserUC:      usecase.NewUserUseCase(store.Users()),
		ProductUC:   usecase.NewProductUseCase(store.TxRunner(), store.Products(), 5, log, dash.Invalidate),
		Ledger:      ledger,
		ExportUC:    inventory.NewExportUseCase(ledger, excel.NewInventoryExporter()),
		AuditUC:     inventory.NewAuditUseCase(store.TxRunner(), store.Inventory(), cache.NewLocalLocker(), time.Minute, log),
		InvoiceUC:   billing.NewInvoiceUseCase(store.TxRunner(), ledger, store.Products(), store.Invoices(), log, dash.Invalidate),
		PDFUC:       billing.NewPDFUseCase(store.Invoices(), pdf.NewMarotoPDFGenerator("Ferretería Test")),
		DashboardUC: dash,
		JWTSecret:   testJWTSecret,
	})

	f := &apiFixture{app: app, store: store, ledger: ledger, tokens: map[string]string{}}
	for _, role := range []string{"admin", "bodeguero", "vendedor"} {
		f.tokens[role] = bearer(t, role)
	}
	return f
}

// call ejecuta la petición y devuelve status y body.
func (f *apiFixture) call(t *testing.T, method, path, role string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", f.tokens[role])
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// createProduct crea un producto vía API (registro de inventario en 0).
func (f *apiFixture) createProduct(t *testing.T, sku, name string, price int) string {
	t.Helper()
	status, raw := f.call(t, http.MethodPost, "/api/products", "admin", map[string]any{
		"sku": sku, "name": name, "price": price, "tax_rate": 19,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return decode[dto.ProductResponse](t, raw).ID
}

func (f *apiFixture) stockIn(t *testing.T, productID string, amount int) {
	t.Helper()
	status, raw := f.call(t, http.MethodPost, "/api/inventory/stock-in", "bodeguero", map[string]any{
		"product_id": productID, "amount": amount, "reason": "Compra",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
}

func TestInventoryAPI_EntradaYSalida(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "MRT-1", "Martillo", 25000)

	status, raw := f.call(t, http.MethodPost, "/api/inventory/stock-in", "bodeguero", map[string]any{
		"product_id": id, "amount": 10, "reason": "Compra", "reference": "OC-7",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	res := decode[dto.StockMovementResponse](t, raw)
	assert.Equal(t, 10, res.Inventory.Quantity)
	assert.Equal(t, "in", res.Movement.Type)
	assert.Equal(t, 0, res.Movement.PreviousQuantity)
	assert.Equal(t, 10, res.Movement.NewQuantity)
	assert.Equal(t, "OC-7", res.Movement.Reference)

	status, raw = f.call(t, http.MethodPost, "/api/inventory/stock-out", "admin", map[string]any{
		"product_id": id, "amount": 4,
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	res = decode[dto.StockMovementResponse](t, raw)
	assert.Equal(t, 6, res.Inventory.Quantity)
	assert.Equal(t, "out", res.Movement.Type)

	status, raw = f.call(t, http.MethodGet, "/api/inventory/"+id+"/movements?limit=1", "vendedor", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	list := decode[dto.MovementListResponse](t, raw)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "out", list.Items[0].Type)
	assert.Equal(t, 1, list.Page.Limit)

	// La página informa el límite aplicado: por defecto 50, acotado al máximo configurado.
	for query, want := range map[string]int{"": 50, "?limit=500": 100} {
		status, raw = f.call(t, http.MethodGet, "/api/inventory/"+id+"/movements"+query, "vendedor", nil)
		require.Equal(t, http.StatusOK, status, string(raw))
		list = decode[dto.MovementListResponse](t, raw)
		assert.Equal(t, want, list.Page.Limit, query)
		assert.Len(t, list.Items, 2)
	}
}

func TestInventoryAPI_SalidaInsuficiente(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "BRC-1", "Broca", 3000)
	f.stockIn(t, id, 2)

	status, raw := f.call(t, http.MethodPost, "/api/inventory/stock-out", "bodeguero", map[string]any{
		"product_id": id, "amount": 5,
	})
	require.Equal(t, http.StatusConflict, status)
	errResp := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "INSUFFICIENT_STOCK", errResp.Code)
	assert.EqualValues(t, 2, errResp.Details["available"])
	assert.EqualValues(t, 5, errResp.Details["requested"])
	assert.Equal(t, id, errResp.Details["product_id"])

	status, raw = f.call(t, http.MethodGet, "/api/inventory/"+id, "vendedor", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decode[dto.StockLevelResponse](t, raw).Quantity)
}

func TestInventoryAPI_Validacion(t *testing.T) {
	f := newAPI(t)
	id := uuid.NewString()

	cases := []struct {
		name string
		body any
		code string
	}{
		{"amount cero", map[string]any{"product_id": id, "amount": 0}, "VALIDATION"},
		{"amount negativo", map[string]any{"product_id": id, "amount": -3}, "VALIDATION"},
		{"product_id no uuid", map[string]any{"product_id": "abc", "amount": 1}, "VALIDATION"},
		{"amount no numérico", `{"product_id":"` + id + `","amount":"diez"}`, "INVALID_BODY"},
		{"json roto", `{"product_id":`, "INVALID_BODY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := f.call(t, http.MethodPost, "/api/inventory/stock-in", "admin", tc.body)
			assert.Equal(t, http.StatusBadRequest, status, string(raw))
			assert.Equal(t, tc.code, decode[dto.ErrorResponse](t, raw).Code)
		})
	}

	movs, err := f.store.Movements().ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestInventoryAPI_Roles(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "SRR-1", "Sierra", 40000)
	body := map[string]any{"product_id": id, "amount": 1}

	status, _ := f.call(t, http.MethodPost, "/api/inventory/stock-in", "vendedor", body)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = f.call(t, http.MethodPost, "/api/inventory/stock-in", "", body)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.call(t, http.MethodGet, "/api/inventory/audit", "bodeguero", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = f.call(t, http.MethodDelete, "/api/products/"+id, "bodeguero", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestInventoryAPI_ProductoSinRegistro(t *testing.T) {
	f := newAPI(t)
	id := uuid.NewString()

	status, raw := f.call(t, http.MethodGet, "/api/inventory/"+id+"?requested=1", "vendedor", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	lvl := decode[dto.StockLevelResponse](t, raw)
	assert.False(t, lvl.Tracked)
	assert.Equal(t, 0, lvl.Quantity)
	require.NotNil(t, lvl.Sufficient)
	assert.False(t, *lvl.Sufficient)

	status, raw = f.call(t, http.MethodGet, "/api/inventory/"+id+"?requested=0", "vendedor", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, *decode[dto.StockLevelResponse](t, raw).Sufficient)

	status, _ = f.call(t, http.MethodGet, "/api/inventory/"+id+"?requested=-1", "vendedor", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.call(t, http.MethodGet, "/api/inventory/no-es-uuid", "vendedor", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInventoryAPI_ResumenYReorden(t *testing.T) {
	f := newAPI(t)
	a := f.createProduct(t, "A-1", "Alicate", 15000)
	b := f.createProduct(t, "B-1", "Brocha", 8000)
	f.stockIn(t, a, 20)
	f.stockIn(t, b, 3)

	status, raw := f.call(t, http.MethodGet, "/api/inventory/summary", "vendedor", nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode[dto.InventorySummaryResponse](t, raw)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.LowStockCount)
	assert.Equal(t, "Alicate", summary.Items[0].ProductName)

	status, raw = f.call(t, http.MethodPut, "/api/inventory/"+a+"/reorder-level", "bodeguero", map[string]any{"reorder_level": 25})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decode[dto.InventoryResponse](t, raw).IsLowStock)

	status, raw = f.call(t, http.MethodGet, "/api/inventory/low-stock", "vendedor", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.InventorySummaryResponse](t, raw).Items, 2)

	status, _ = f.call(t, http.MethodPut, "/api/inventory/"+a+"/reorder-level", "bodeguero", map[string]any{"reorder_level": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.call(t, http.MethodPut, "/api/inventory/"+a+"/reorder-level", "bodeguero", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.call(t, http.MethodPut, "/api/inventory/"+uuid.NewString()+"/reorder-level", "bodeguero", map[string]any{"reorder_level": 1})
	assert.Equal(t, http.StatusNotFound, status)

	movs, err := f.ledger.GetProductMovements(context.Background(), a, 10, 0)
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestInventoryAPI_ExportYAuditoria(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "C-1", "Cincel", 9000)
	f.stockIn(t, id, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/export", nil)
	req.Header.Set("Authorization", f.tokens["admin"])
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	status, raw := f.call(t, http.MethodGet, "/api/inventory/audit", "admin", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	report := decode[dto.AuditReportResponse](t, raw)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.CheckedProducts)
}

func TestInvoiceAPI_CicloCompleto(t *testing.T) {
	f := newAPI(t)
	a := f.createProduct(t, "T-1", "Taladro", 100)
	b := f.createProduct(t, "L-1", "Lija", 10)
	f.stockIn(t, a, 5)
	f.stockIn(t, b, 10)

	// La segunda línea no alcanza: nada cambia.
	status, raw := f.call(t, http.MethodPost, "/api/invoices", "vendedor", dto.InvoiceRequest{
		Items: []dto.InvoiceItemRequest{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 11}},
	})
	require.Equal(t, http.StatusConflict, status, string(raw))
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)
	stock := func(id string) int {
		q, err := f.ledger.GetCurrentStock(context.Background(), id)
		require.NoError(t, err)
		return q
	}
	assert.Equal(t, 5, stock(a))
	assert.Equal(t, 10, stock(b))

	status, raw = f.call(t, http.MethodPost, "/api/invoices", "vendedor", dto.InvoiceRequest{
		CustomerName: "Obra Norte",
		Items:        []dto.InvoiceItemRequest{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 3}},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	invoice := decode[dto.InvoiceResponse](t, raw)
	assert.Equal(t, 3, stock(a))
	assert.Equal(t, 7, stock(b))

	status, raw = f.call(t, http.MethodPut, "/api/invoices/"+invoice.ID, "vendedor", dto.InvoiceRequest{
		CustomerName: "Obra Norte",
		Items:        []dto.InvoiceItemRequest{{ProductID: a, Quantity: 1}},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, 4, stock(a))
	assert.Equal(t, 10, stock(b))

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+invoice.ID+"/pdf", nil)
	req.Header.Set("Authorization", f.tokens["vendedor"])
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	pdfBytes, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))

	status, _ = f.call(t, http.MethodDelete, "/api/invoices/"+invoice.ID, "bodeguero", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = f.call(t, http.MethodDelete, "/api/invoices/"+invoice.ID, "vendedor", nil)
	require.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, 5, stock(a))

	status, _ = f.call(t, http.MethodGet, "/api/invoices/"+invoice.ID, "vendedor", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductAPI_DeleteConExistencia(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "P-1", "Pala", 30000)
	f.stockIn(t, id, 1)

	status, raw := f.call(t, http.MethodDelete, "/api/products/"+id, "admin", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", decode[dto.ErrorResponse](t, raw).Code)

	status, _ = f.call(t, http.MethodPost, "/api/products", "admin", map[string]any{"sku": "P-1", "name": "Otra"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestAPI_IDMalformadoEsBadRequest(t *testing.T) {
	f := newAPI(t)

	for _, tc := range []struct{ method, path, role string }{
		{http.MethodGet, "/api/products/not-a-uuid", "vendedor"},
		{http.MethodPut, "/api/products/not-a-uuid", "admin"},
		{http.MethodDelete, "/api/products/not-a-uuid", "admin"},
		{http.MethodGet, "/api/invoices/not-a-uuid", "vendedor"},
		{http.MethodGet, "/api/invoices/not-a-uuid/pdf", "vendedor"},
		{http.MethodDelete, "/api/invoices/not-a-uuid", "vendedor"},
	} {
		status, raw := f.call(t, tc.method, tc.path, tc.role, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, status, tc.method+" "+tc.path)
		assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, raw).Code, tc.path)
	}
}

func TestAuthAPI_RegistroLoginYPerfil(t *testing.T) {
	f := newAPI(t)

	status, raw := f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: "Caja@Ferre.co", Password: "clave-segura", Name: "Caja",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "vendedor", decode[dto.UserResponse](t, raw).Role)

	status, _ = f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: "caja@ferre.co", Password: "clave-segura", Name: "Otra",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: "x@ferre.co", Password: "corta", Name: "X",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// El admin da de alta al bodeguero.
	status, raw = f.call(t, http.MethodPost, "/api/auth/users", "admin", dto.RegisterRequest{
		Email: "Bodega@Ferre.co", Password: "clave-segura", Name: "Bodega", Role: "bodeguero",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, _ = f.call(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "bodega@ferre.co", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = f.call(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "bodega@ferre.co", Password: "clave-segura"})
	require.Equal(t, http.StatusOK, status, string(raw))
	login := decode[dto.LoginResponse](t, raw)
	assert.Equal(t, "bodeguero", login.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[dto.UserResponse](t, mustRead(t, resp.Body))
	assert.Equal(t, "bodega@ferre.co", me.Email)
}

func TestAuthAPI_RegistroPublicoNoOtorgaRoles(t *testing.T) {
	f := newAPI(t)

	for _, role := range []string{"admin", "bodeguero"} {
		status, raw := f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
			Email: role + "@ferre.co", Password: "clave-segura", Name: "Intruso", Role: role,
		})
		assert.Equal(t, http.StatusForbidden, status, string(raw))
	}

	status, raw := f.call(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: "intruso@ferre.co", Password: "clave-segura", Name: "Intruso",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	status, raw = f.call(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "intruso@ferre.co", Password: "clave-segura"})
	require.Equal(t, http.StatusOK, status, string(raw))
	token := "Bearer " + decode[dto.LoginResponse](t, raw).Token

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/inventory/audit"},
		{http.MethodPost, "/api/inventory/stock-in"},
		{http.MethodPost, "/api/auth/users"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", token)
		resp, err := f.app.Test(req, -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.path)
	}

	// Un vendedor tampoco puede crear usuarios con rol.
	status, _ = f.call(t, http.MethodPost, "/api/auth/users", "vendedor", dto.RegisterRequest{
		Email: "otro@ferre.co", Password: "clave-segura", Name: "Otro", Role: "admin",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDashboardAPI_Resumen(t *testing.T) {
	f := newAPI(t)
	id := f.createProduct(t, "D-1", "Destornillador", 5000)
	f.stockIn(t, id, 8)

	status, raw := f.call(t, http.MethodGet, "/api/dashboard/summary", "vendedor", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	s := decode[dto.DashboardSummaryDTO](t, raw)
	assert.Equal(t, 1, s.ProductCount)
	assert.Equal(t, 8, s.TotalUnits)
}

func mustRead(t *testing.T, r io.Reader) []byte {
	t.Helper()
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	return raw
}
