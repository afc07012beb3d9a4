package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate checks request structs against their `validate` tags. Field
// names in messages come from the json tags. Usernames are 5 to 20
// characters without "@" so they never read as an email, passwords at least 8, titles at most 100 and post bodies at
// most 3000, matching the column sizes.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// registerRequest is the body of POST /auth/register.
type registerRequest struct {
	Username string `json:"username" validate:"required,min=5,max=20,excludes=@"`
	Email    string `json:"email" validate:"required,email,max=340"`
	Password string `json:"password" validate:"required,min=8"`
}

// loginRequest is the body of POST /auth/login. Login is an email address
// when it contains "@" and a username otherwise.
type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// profileRequest is the body of PUT /users/me.
type profileRequest struct {
	Username string `json:"username" validate:"required,min=5,max=20,excludes=@"`
	Email    string `json:"email" validate:"required,email,max=340"`
}

// passwordRequest is the body of PUT /users/me/password.
type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// postRequest is the body of every post-creating endpoint.
type postRequest struct {
	Title   string `json:"title" validate:"required,max=100"`
	Content string `json:"content" validate:"required,max=3000"`
}

// codeRequest is the body of POST /auth/2fa/verify.
type codeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// validateRequest trims string fields and validates req, returning the
// first problem as a 400 input error.
func validateRequest(req any) error {
	trimStrings(req)

	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}
	return badRequest("%s", fieldMessage(fieldErrs[0]))
}

// fieldMessage renders a validation failure for API clients.
func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return field + " must contain only digits"
	case "excludes":
		return fmt.Sprintf("%s must not contain %q", field, fe.Param())
	}
	return field + " is invalid"
}

// trimStrings strips surrounding whitespace from every string field of the
// struct pointed to by req, except passwords.
func trimStrings(req any) {
	v := reflect.ValueOf(req)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() || t.Field(i).Name == "Password" {
			continue
		}
		f.SetString(strings.TrimSpace(f.String()))
	}
}
