// validation.go - Request body binding with field-level error messages
//
// gin's binding uses go-playground/validator under the hood. Register adds
// the password policy and byte length tags and makes errors report JSON
// field names; Bind turns binding failures into apperrors values.

package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"go-user-backend/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PasswordSpecials are the characters that satisfy the special-character class.
const PasswordSpecials = "!@#$%^&*"

const PasswordPolicyMessage = "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character"

var registerOnce sync.Once

// Register installs custom tags on gin's validator. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("validation: gin validator engine is not go-playground/validator")
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("password_policy", passwordPolicy); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("max_bytes", maxBytes); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("rfc3339", rfc3339); err != nil {
			panic(err)
		}
	})
}

// MeetsPasswordPolicy reports whether pw has every required character class.
func MeetsPasswordPolicy(pw string) bool {
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func passwordPolicy(fl validator.FieldLevel) bool {
	return MeetsPasswordPolicy(fl.Field().String())
}

// maxBytes bounds the encoded length of a string; max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func rfc3339(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := parseTime(s)
	return err == nil
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// BindJSON decodes and validates the request body into dst.
func BindJSON(c *gin.Context, dst any) error {
	return check(c.ShouldBindJSON(dst))
}

// BindQuery decodes and validates query parameters into dst.
func BindQuery(c *gin.Context, dst any) error {
	return check(c.ShouldBindQuery(dst))
}

func check(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperrors.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperrors.FieldError{Field: fe.Field(), Message: message(fe)})
		}
		return apperrors.Validation(fields...)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperrors.BadRequest(apperrors.CodeBadRequest, "Malformed JSON body")
	case errors.As(err, &typeErr):
		return apperrors.Validation(apperrors.FieldError{Field: typeErr.Field, Message: fmt.Sprintf("%s has the wrong type", typeErr.Field)})
	}
	return apperrors.BadRequest(apperrors.CodeBadRequest, "Invalid request body")
}

func message(fe validator.FieldError) string {
	field := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please provide a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "max_bytes":
		return fmt.Sprintf("%s must be at most %s bytes long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "password_policy":
		return PasswordPolicyMessage
	case "nefield":
		return fmt.Sprintf("%s must be different from %s", field, humanize(fe.Param()))
	case "rfc3339":
		return field + " must be a valid date"
	}
	return field + " is invalid"
}

// humanize turns "firstName" into "First name".
func humanize(name string) string {
	if name == "" {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
