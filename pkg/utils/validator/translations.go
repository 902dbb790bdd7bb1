package validator

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// registerCustomTranslations registers translations for custom validation rules.
func (v *Validator) registerCustomTranslations() {
	// Register English translations
	enTrans := v.GetTranslator(LangEN)
	if enTrans != nil {
		v.registerEnglishTranslations(enTrans)
	}

	// Register Chinese translations
	zhTrans := v.GetTranslator(LangZH)
	if zhTrans != nil {
		v.registerChineseTranslations(zhTrans)
	}
}

// registerEnglishTranslations registers English translations for custom rules.
func (v *Validator) registerEnglishTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagNotBlank: "{0} is required",
		TagPhone:    "{0} must be an international phone number",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerChineseTranslations registers Chinese translations for custom rules.
func (v *Validator) registerChineseTranslations(trans ut.Translator) {
	translations := map[string]string{
		TagNotBlank: "{0}为必填字段",
		TagPhone:    "{0}必须是国际格式的电话号码",
	}

	for tag, message := range translations {
		registerTranslation(v.validate, trans, tag, message)
	}
}

// registerTranslation registers a single translation.
func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}

// TranslationOverride represents a translation override for a specific tag.
type TranslationOverride struct {
	Tag     string
	Message string
}

// RegisterTranslations registers multiple translation overrides for a language.
func (v *Validator) RegisterTranslations(lang string, overrides []TranslationOverride) {
	trans := v.GetTranslator(lang)
	if trans == nil {
		return
	}

	for _, override := range overrides {
		registerTranslation(v.validate, trans, override.Tag, override.Message)
	}
}

// RegisterTranslation registers a single translation override.
func (v *Validator) RegisterTranslation(lang, tag, message string) {
	trans := v.GetTranslator(lang)
	if trans == nil {
		return
	}

	registerTranslation(v.validate, trans, tag, message)
}
