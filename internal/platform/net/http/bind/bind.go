// Package bind validates option structs and request parameters
package bind

import (
	"errors"
	"reflect"
	"sync"

	perr "ottscout/internal/platform/errors"
	"ottscout/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type engine struct {
	v     *validator.Validate
	trans ut.Translator
}

var get = sync.OnceValue(newEngine)

func newEngine() *engine {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	// fields are named the way callers spell them: query or json tag, else the Go name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := paramName(fld); name != "-" {
			return name
		}
		return fld.Name
	})
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	short(v, trans, "min", "{0} must be at least {1}")
	short(v, trans, "max", "{0} must be at most {1}")
	short(v, trans, "len", "{0} must be {1} characters")

	return &engine{v: v, trans: trans}
}

// short replaces the default message for a parameterised tag
func short(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// Struct validates v and maps the first failure onto a Validation error naming the field
func Struct(v any) error {
	err := get().v.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.New(perr.ErrorCodeValidation, "validation error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
}

// FieldAndMessage returns the first failing field and its English message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(get().trans)
	}
	return "", err.Error()
}
