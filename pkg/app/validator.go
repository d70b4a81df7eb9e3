package app

import (
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

type ValidError struct {
	Key     string
	Message string
}

type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ", ")
}

func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// MapsToString 以 key: message 形式输出
func (v ValidErrors) MapsToString() string {
	var parts []string
	for _, err := range v {
		parts = append(parts, err.Key+": "+err.Message)
	}
	return strings.Join(parts, ", ")
}

// Validator 封装 validator/v10 与中英文翻译器
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
}

// NewValidator 创建验证器，字段名取 json 标签并注册中英文翻译
func NewValidator() (*Validator, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	uni := ut.New(en.New(), en.New(), zh.New())
	zhTran, _ := uni.GetTranslator("zh")
	enTran, _ := uni.GetTranslator("en")

	if err := zh_translations.RegisterDefaultTranslations(validate, zhTran); err != nil {
		return nil, err
	}
	if err := en_translations.RegisterDefaultTranslations(validate, enTran); err != nil {
		return nil, err
	}
	return &Validator{validate: validate, uni: uni}, nil
}

// Engine 返回底层 validator
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Translator 按语言取翻译器，zh_cn 映射为 zh
func (v *Validator) Translator(lang string) ut.Translator {
	if lang == "zh_cn" {
		lang = "zh"
	}
	trans, _ := v.uni.GetTranslator(lang)
	return trans
}

// BindAndValid 反序列化 data 到 obj 并执行结构体校验
func (v *Validator) BindAndValid(data []byte, obj any, lang string) (bool, ValidErrors) {
	var errs ValidErrors

	if len(data) > 0 && string(data) != "null" {
		if err := sonic.Unmarshal(data, obj); err != nil {
			errs = append(errs, &ValidError{Key: "data", Message: "Invalid message format"})
			return false, errs
		}
	}

	if err := v.validate.Struct(obj); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			errs = append(errs, &ValidError{Key: "data", Message: err.Error()})
			return false, errs
		}
		trans := v.Translator(lang)
		for _, validationErr := range validationErrors {
			errs = append(errs, &ValidError{
				Key:     validationErr.Field(),
				Message: validationErr.Translate(trans),
			})
		}
		return false, errs
	}
	return true, nil
}
