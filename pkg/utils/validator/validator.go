// Package validator wraps go-playground/validator with English and Chinese
// error translations and the custom rules used by guidebot.
//
// Usage:
//
//	type request struct {
//	    Query string `json:"query" validate:"notblank"`
//	}
//
//	if errs := validator.Global().ValidateWithLang(req, validator.LangEN); errs != nil {
//	    log.Println(errs.Messages())
//	}
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	zhtranslations "github.com/go-playground/validator/v10/translations/zh"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// FieldLevel is passed to custom rules.
type FieldLevel = validator.FieldLevel

// Validator holds a validate instance and its translators.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
}

var (
	global     *Validator
	globalOnce sync.Once
	globalMu   sync.RWMutex
)

// New creates a validator with the built-in and custom rules registered.
func New() *Validator {
	enLocale := en.New()
	zhLocale := zh.New()

	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		uni:      ut.New(enLocale, enLocale, zhLocale),
		trans:    make(map[string]ut.Translator, 2),
	}

	// 错误中使用 json 字段名
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	if trans, ok := v.uni.GetTranslator(LangEN); ok {
		_ = entranslations.RegisterDefaultTranslations(v.validate, trans)
		v.trans[LangEN] = trans
	}
	if trans, ok := v.uni.GetTranslator(LangZH); ok {
		_ = zhtranslations.RegisterDefaultTranslations(v.validate, trans)
		v.trans[LangZH] = trans
	}

	v.registerCustomRules()
	v.registerCustomTranslations()
	return v
}

// Global returns the process wide validator.
func Global() *Validator {
	globalOnce.Do(func() {
		globalMu.Lock()
		if global == nil {
			global = New()
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetGlobal replaces the process wide validator.
func SetGlobal(v *Validator) {
	globalOnce.Do(func() {})
	globalMu.Lock()
	global = v
	globalMu.Unlock()
}

// Engine returns the underlying validate instance.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// GetTranslator returns the translator for lang, or nil when unsupported.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	return v.trans[lang]
}

// Validate validates a struct.
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

// ValidateVar validates a single value against tag.
func (v *Validator) ValidateVar(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// ValidateWithLang validates a struct and translates the failures.
// Unsupported languages fall back to English. Returns nil when s is valid.
func (v *Validator) ValidateWithLang(s any, lang string) *ValidationErrors {
	return v.translate(v.validate.Struct(s), lang)
}

// ValidateVarWithLang validates a single value and translates the failures.
func (v *Validator) ValidateVarWithLang(field any, tag, lang string) *ValidationErrors {
	return v.translate(v.validate.Var(field, tag), lang)
}

// RegisterValidation registers a custom rule.
func (v *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}

// RegisterValidationWithTranslation registers a custom rule with messages
// keyed by language.
func (v *Validator) RegisterValidationWithTranslation(tag string, fn validator.Func, messages map[string]string) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return err
	}
	for lang, msg := range messages {
		v.RegisterTranslation(lang, tag, msg)
	}
	return nil
}

func (v *Validator) translate(err error, lang string) *ValidationErrors {
	if err == nil {
		return nil
	}

	trans := v.GetTranslator(lang)
	if trans == nil {
		trans = v.trans[LangEN]
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{Errors: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationErrors{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fe.Translate(trans),
		})
	}
	return out
}

// Struct validates s with the global validator.
func Struct(s any) error {
	return Global().Validate(s)
}

// StructWithLang validates s with the global validator and translates failures.
func StructWithLang(s any, lang string) *ValidationErrors {
	return Global().ValidateWithLang(s, lang)
}

// VarWithLang validates a single value with the global validator.
func VarWithLang(field any, tag, lang string) *ValidationErrors {
	return Global().ValidateVarWithLang(field, tag, lang)
}
