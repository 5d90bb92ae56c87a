// Package validator wraps go-playground/validator with translated error messages
// and a gin binding adapter, so every request struct is validated the same way.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Language constants for i18n support.
const (
	LangEN = "en"
	LangZH = "zh"
)

// TagName is the struct tag read by the validator. It matches gin's binding tag.
const TagName = "binding"

// Validator wraps go-playground/validator with additional features.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
	mu       sync.RWMutex
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the global validator instance.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a new Validator instance with default configuration.
func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		trans:    make(map[string]ut.Translator),
	}
	v.validate.SetTagName(TagName)

	// 错误中的字段名使用 json/form 标签
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := v.uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := v.uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	v.registerCustomRules()
	return v
}

// registerCustomRules 注册自定义规则及其翻译。
func (v *Validator) registerCustomRules() {
	_ = v.RegisterValidationWithTranslation("notblank", notBlank, map[string]string{
		LangEN: "{0} must not be blank",
		LangZH: "{0}不能为空白",
	})
}

// notBlank 字符串去掉空白后非空。
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// Validate validates a struct and returns the raw go-playground error.
func (v *Validator) Validate(s any) error {
	return v.validate.Struct(s)
}

// ValidateWithLang validates a struct and returns translated validation errors, or nil.
func (v *Validator) ValidateWithLang(s any, lang string) *ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewValidationError("unknown", "unknown", err.Error())
	}
	return v.translateErrors(validationErrors, v.GetTranslator(lang))
}

// GetTranslator returns a translator for the specified language, English by default.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if trans, ok := v.trans[lang]; ok {
		return trans
	}
	return v.trans[LangEN]
}

// RegisterValidationWithTranslation registers a custom validation with translation.
func (v *Validator) RegisterValidationWithTranslation(tag string, fn validator.Func, translations map[string]string) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return err
	}

	for lang, message := range translations {
		trans := v.GetTranslator(lang)
		_ = v.validate.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, message, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			},
		)
	}
	return nil
}

func (v *Validator) translateErrors(errs validator.ValidationErrors, trans ut.Translator) *ValidationErrors {
	result := &ValidationErrors{
		Errors: make([]FieldError, 0, len(errs)),
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, FieldError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Value:   err.Value(),
			Param:   err.Param(),
			Message: err.Translate(trans),
		})
	}
	return result
}

// Binding returns a gin binding.StructValidator backed by v.
// Install it with `binding.Validator = validator.Global().Binding()`.
func (v *Validator) Binding() binding.StructValidator {
	return &ginValidator{v: v, lang: LangEN}
}

type ginValidator struct {
	v    *Validator
	lang string
}

// ValidateStruct validates structs and pointers to structs; other kinds pass.
func (g *ginValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	if errs := g.v.ValidateWithLang(obj, g.lang); errs != nil {
		return errs
	}
	return nil
}

func (g *ginValidator) Engine() any {
	return g.v.validate
}

// Struct validates a struct with the global validator.
func Struct(s any) *ValidationErrors {
	return Global().ValidateWithLang(s, LangEN)
}
