package auth

import (
	"fmt"

	"forum-lab/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest mirrors the registration form: a short printable username,
// a real email, a password with a floor and the bcrypt-family ceiling.
type RegisterRequest struct {
	Username string `validate:"required,min=4,max=20,printascii,excludesall= "`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}
	return nil
}
