package config

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/asum-cli/asum/internal/pkg/errors"
)

var (
	validatorOnce   sync.Once
	structValidator *validator.Validate
	translator      ut.Translator
)

func initValidator() {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		structValidator = validator.New(validator.WithRequiredStructEnabled())
		// report toml key names, not Go field names
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("toml")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "-" || tag == "" {
				return fld.Name
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(structValidator, translator)
	})
}

// validate checks value ranges and required fields.
func validate(cfg *Config) error {
	initValidator()

	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Wrap(err, errors.ErrConfigInvalid, "invalid configuration")
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, keyPath(fe)+": "+fe.Translate(translator))
	}
	return errors.NewConfigInvalidError("invalid configuration: " + strings.Join(msgs, "; ")).
		WithContext("fields", len(fieldErrs))
}

// keyPath turns "Config.general.max_diff_length" into "general.max_diff_length".
func keyPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
