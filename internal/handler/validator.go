package handler

import (
	"github.com/sumire/oceanschool/internal/domain"
)

// AppValidator plugs the domain validation rules into echo.
type AppValidator struct{}

// NewAppValidator creates a new AppValidator.
func NewAppValidator() *AppValidator {
	return &AppValidator{}
}

// Validate validates a struct using its go-playground/validator tags.
func (v *AppValidator) Validate(i any) error {
	return domain.Validate(i)
}
