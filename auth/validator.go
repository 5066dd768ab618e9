package auth

import (
	"fmt"

	"ohtalk/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest holds the account rules checked before hashing.
// Password strength is not part of these rules.
type RegisterRequest struct {
	Username string `validate:"required,max=32"`
	Password string `validate:"required,max=72"`
	Nickname string `validate:"required,max=32"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidData, err)
	}
	return nil
}
