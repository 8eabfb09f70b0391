package domain

import "github.com/google/uuid"

// ValidateID exige un UUID bien formado; field nombra el parámetro en el mensaje.
func ValidateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return InvalidInputf("%s %q no es un UUID válido", field, id)
	}
	return nil
}
