package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// requestValidator adapts validator to echo.Validator and carries the english translator
// used to render field errors.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// newRequestValidator only ships english messages; any other locale is an error.
func newRequestValidator(locale string) (*requestValidator, error) {
	v := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	trans, found := uni.GetTranslator(locale)
	if !found {
		return nil, fmt.Errorf("api: no %q translator for validation messages", locale)
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("api: register validation translations: %w", err)
	}

	// Report query names instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &requestValidator{validate: v, translator: trans}, nil
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

func (rv *requestValidator) fieldErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(rv.translator)
	}
	return out
}
