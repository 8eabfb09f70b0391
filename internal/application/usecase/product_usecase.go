package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/domain"
	domainbilling "github.com/jhoicas/erp-api/internal/domain/billing"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	domaininv "github.com/jhoicas/erp-api/internal/domain/inventory"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// CatalogTxRunner transacción que abarca producto y registro de inventario.
type CatalogTxRunner interface {
	RunCatalog(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		invRepo repository.InventoryRepository,
	) error) error
}

// CatalogListener se invoca tras confirmar un cambio del catálogo.
type CatalogListener func(ctx context.Context)

// ProductUseCase casos de uso CRUD para productos. La existencia solo cambia vía ledger.
type ProductUseCase struct {
	txRunner            CatalogTxRunner
	repo                repository.ProductRepository
	defaultReorderLevel int
	listeners           []CatalogListener
	log                 zerolog.Logger
}

// NewProductUseCase construye el caso de uso. repo se usa para lecturas fuera de transacción.
func NewProductUseCase(
	txRunner CatalogTxRunner,
	repo repository.ProductRepository,
	defaultReorderLevel int,
	log zerolog.Logger,
	listeners ...CatalogListener,
) *ProductUseCase {
	return &ProductUseCase{
		txRunner:            txRunner,
		repo:                repo,
		defaultReorderLevel: defaultReorderLevel,
		listeners:           listeners,
		log:                 log.With().Str("component", "catalog").Logger(),
	}
}

func (uc *ProductUseCase) changed(ctx context.Context) {
	for _, l := range uc.listeners {
		l(ctx)
	}
}

// Create crea el producto y su registro de inventario con cantidad 0 en la misma transacción.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)
	if in.SKU == "" || in.Name == "" {
		return nil, domain.InvalidInputf("sku y nombre son obligatorios")
	}
	if in.Price.IsNegative() {
		return nil, domain.InvalidInputf("el precio no puede ser negativo")
	}
	rate, err := taxRate(in.TaxRate)
	if err != nil {
		return nil, err
	}
	reorder := uc.defaultReorderLevel
	if in.ReorderLevel != nil {
		if err := domaininv.ValidateReorderLevel(*in.ReorderLevel); err != nil {
			return nil, err
		}
		reorder = *in.ReorderLevel
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = "94"
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:          uuid.New().String(),
		SKU:         in.SKU,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		TaxRate:     rate,
		UnitMeasure: in.UnitMeasure,
		Status:      entity.ProductStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = uc.txRunner.RunCatalog(ctx, func(productRepo repository.ProductRepository, invRepo repository.InventoryRepository) error {
		if err := ensureSKUFree(ctx, productRepo, product.SKU, ""); err != nil {
			return err
		}
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return invRepo.Create(ctx, &entity.Inventory{
			ID:           uuid.New().String(),
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     0,
			ReorderLevel: reorder,
			LastUpdated:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	uc.changed(ctx)
	uc.log.Info().Str("product_id", product.ID).Str("sku", product.SKU).Msg("producto creado")
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. Un cambio de nombre se propaga al registro de inventario.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	var product *entity.Product
	err := uc.txRunner.RunCatalog(ctx, func(productRepo repository.ProductRepository, invRepo repository.InventoryRepository) error {
		var err error
		product, err = productRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		renamed := false
		if in.SKU != nil && strings.TrimSpace(*in.SKU) != product.SKU {
			sku := strings.TrimSpace(*in.SKU)
			if err := ensureSKUFree(ctx, productRepo, sku, product.ID); err != nil {
				return err
			}
			product.SKU = sku
		}
		if in.Name != nil && strings.TrimSpace(*in.Name) != product.Name {
			product.Name = strings.TrimSpace(*in.Name)
			renamed = true
		}
		if in.Description != nil {
			product.Description = *in.Description
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return domain.InvalidInputf("el precio no puede ser negativo")
			}
			product.Price = *in.Price
		}
		if in.TaxRate != nil {
			rate, err := taxRate(*in.TaxRate)
			if err != nil {
				return err
			}
			product.TaxRate = rate
		}
		if in.UnitMeasure != nil {
			product.UnitMeasure = *in.UnitMeasure
		}
		if in.Status != nil {
			product.Status = *in.Status
		}
		product.UpdatedAt = time.Now().UTC()
		if err := productRepo.Update(ctx, product); err != nil {
			return err
		}
		if renamed {
			if err := invRepo.UpdateProductName(ctx, product.ID, product.Name); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.changed(ctx)
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Delete elimina el producto y su registro de inventario. ErrConflict mientras quede existencia;
// los movimientos se conservan como historial.
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateID("id", id); err != nil {
		return err
	}
	err := uc.txRunner.RunCatalog(ctx, func(productRepo repository.ProductRepository, invRepo repository.InventoryRepository) error {
		if _, err := productRepo.GetByID(ctx, id); err != nil {
			return err
		}
		inv, err := invRepo.GetForUpdate(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return err
		case inv.Quantity > 0:
			return domain.ErrConflict
		default:
			if err := invRepo.Delete(ctx, id); err != nil {
				return err
			}
		}
		return productRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	uc.changed(ctx)
	uc.log.Info().Str("product_id", id).Msg("producto eliminado")
	return nil
}

func ensureSKUFree(ctx context.Context, repo repository.ProductRepository, sku, ownID string) error {
	existing, err := repo.GetBySKU(ctx, sku)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != ownID:
		return domain.ErrDuplicate
	}
	return nil
}

// taxRate acepta 0, 5, 19 o sus fracciones y devuelve la fracción.
func taxRate(rate decimal.Decimal) (decimal.Decimal, error) {
	r := domainbilling.NormalizeTaxRate(rate)
	if !domainbilling.ValidTaxRate(r) {
		return decimal.Zero, domain.InvalidInputf("tarifa de IVA no admitida: %s", rate.String())
	}
	return r, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		TaxRate:     p.TaxRate,
		UnitMeasure: p.UnitMeasure,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
