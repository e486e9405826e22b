package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// User-facing validation messages. These never reach the network layer.
const (
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooShort = "Password must be at least 8 characters"
	msgFieldsRequired   = "Please fill in all fields"
)

var validate = validator.New()

// RegisterForm is the registration screen's input. Password rules match
// the backend's, so a form that passes here is not rejected for length.
type RegisterForm struct {
	Username string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required,min=8"`
	Confirm  string `validate:"eqfield=Password"`
}

// ResetForm is the new-password input on the reset screen.
type ResetForm struct {
	Password string `validate:"required,min=8"`
	Confirm  string `validate:"eqfield=Password"`
}

// formError validates a form and returns the message to show, or ""
// when the form may be submitted.
func formError(form any) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgFieldsRequired
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "eqfield":
			return msgPasswordMismatch
		case "min":
			return msgPasswordTooShort
		}
	}
	return msgFieldsRequired
}
