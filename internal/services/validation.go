package services

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/org-access-api/internal/constants"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var (
	validate      = newValidator()
	usernameRules = fmt.Sprintf("required,min=%d,max=%d,username", constants.MinUsernameLength, constants.MaxUsernameLength)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

func isValidEmail(email string) bool {
	return validate.Var(email, "required,email,max=255") == nil
}

func isValidUsername(username string) bool {
	return validate.Var(username, usernameRules) == nil
}
