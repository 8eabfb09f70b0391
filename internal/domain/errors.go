package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	// ErrTransaction fallo de la transacción (begin/commit, timeout, deadlock o serialización).
	// Ningún efecto persiste; el llamador puede reintentar.
	ErrTransaction = errors.New("fallo de transacción")
)

// InsufficientStockError lleva lo disponible y lo solicitado para el mensaje al usuario.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para el producto %s: disponible %d, solicitado %d",
		e.ProductID, e.Available, e.Requested)
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NewInsufficientStock construye el error tipado.
func NewInsufficientStock(productID string, available, requested int) error {
	return &InsufficientStockError{ProductID: productID, Available: available, Requested: requested}
}

// InvalidInputf envuelve ErrInvalidInput con detalle.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
