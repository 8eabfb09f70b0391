package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// ValidRole indica si r es un rol conocido.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleBodeguero || r == RoleVendedor
}

// User usuario del sistema.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt, nunca en claro después de persistir
	Name         string
	Role         string
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
