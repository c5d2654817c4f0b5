// Package validate checks request payloads against their struct tags.
package validate

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

func init() {
	validate = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// Check returns the first failed validation of val as a readable error.
func Check(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}
	if len(verrors) == 0 {
		return nil
	}
	return errors.New(verrors[0].Translate(translator))
}

func GenerateID() string {
	return uuid.NewString()
}

// CheckID reports whether id is a well formed uuid.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("id is not in its proper form")
	}
	return nil
}
