package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-api/internal/application/analytics"
	"github.com/jhoicas/erp-api/internal/application/auth"
	"github.com/jhoicas/erp-api/internal/application/billing"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	UserUC      *usecase.UserUseCase
	ProductUC   *usecase.ProductUseCase
	Ledger      *inventory.Service
	ExportUC    *inventory.ExportUseCase
	AuditUC     *inventory.AuditUseCase
	InvoiceUC   *billing.InvoiceUseCase
	PDFUC       *billing.PDFUseCase
	DashboardUC *analytics.DashboardUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	stockRoles := RequireRole(entity.RoleAdmin, entity.RoleBodeguero)
	salesRoles := RequireRole(entity.RoleAdmin, entity.RoleVendedor)
	adminOnly := RequireRole(entity.RoleAdmin)

	// Auth: register y login públicos; el alta con rol la hace un admin
	authHandler := NewAuthHandler(deps.AuthUC, deps.UserUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/me", AuthMiddleware(deps.JWTSecret), authHandler.Me)
	authGroup.Post("/users", AuthMiddleware(deps.JWTSecret), adminOnly, authHandler.CreateUser)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", stockRoles, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", stockRoles, productHandler.Update)
	products.Delete("/:id", adminOnly, productHandler.Delete)

	// Inventory: las rutas fijas van antes de /:id
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.ExportUC, deps.AuditUC)
	invGroup.Post("/stock-in", stockRoles, inventoryHandler.StockIn)
	invGroup.Post("/stock-out", stockRoles, inventoryHandler.StockOut)
	invGroup.Get("/summary", inventoryHandler.GetSummary)
	invGroup.Get("/low-stock", inventoryHandler.GetLowStock)
	invGroup.Get("/export", inventoryHandler.Export)
	invGroup.Get("/audit", adminOnly, inventoryHandler.Audit)
	invGroup.Get("/:id", inventoryHandler.GetStock)
	invGroup.Get("/:id/movements", inventoryHandler.GetMovements)
	invGroup.Put("/:id/reorder-level", stockRoles, inventoryHandler.UpdateReorderLevel)

	// Invoices
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.PDFUC)
	invoices.Post("/", salesRoles, invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.Put("/:id", salesRoles, invoiceHandler.Update)
	invoices.Delete("/:id", salesRoles, invoiceHandler.Delete)

	// Dashboard
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	protected.Get("/dashboard/summary", dashboardHandler.GetSummary)
}
