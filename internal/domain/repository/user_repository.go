package repository

import (
	"context"

	"github.com/jhoicas/erp-api/internal/domain/entity"
)

// UserRepository puerto de persistencia para User.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// GetByEmail devuelve domain.ErrUserNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}
