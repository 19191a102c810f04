// Package validation checks inbound requests before they reach storage.
// Struct rules are declared with `validate` tags and checked by
// go-playground/validator; failures come back as VALIDATION domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "walletsaga/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// decimals are checked as numbers so gt/lt tags apply
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("idempotency_key", func(fl validator.FieldLevel) bool {
		return ClientKey(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// KeySeparator joins the parts of every ledger and record id the service
// derives itself. Client keys never contain it, so derived ids cannot
// collide with client ones.
const KeySeparator = ":"

// ClientKey reports whether key may be used as a client idempotency key.
// Rollback ids are spelled rollback-{key}, so keys that already start with
// rollback are refused as well.
func ClientKey(key string) bool {
	return !strings.Contains(key, KeySeparator) &&
		!strings.HasPrefix(strings.ToLower(key), "rollback")
}

// Struct validates s against its tags.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrValidation.WithMessage(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperrors.ErrValidation.WithMessage(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "idempotency_key":
		return fmt.Sprintf("%s must not contain '%s' or start with rollback", fe.Field(), KeySeparator)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}
