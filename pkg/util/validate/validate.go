// Package validate 封装 go-playground/validator
// HTTP 参数绑定和 WebSocket 事件载荷共用同一个校验引擎与翻译器
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"contract_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 全局翻译器
var Trans ut.Translator

var initOnce sync.Once

// InitTrans 初始化翻译器
// locale 参数指定需要初始化的语言，例如 "zh" 或 "en"
func InitTrans(locale string) (err error) {
	// Gin v1.9+ 中 binding.Validator 可能为 nil，需要先初始化
	if binding.Validator == nil {
		v := validator.New()
		v.SetTagName("binding")
		binding.Validator = &defaultValidator{validator: v}
	}

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 报错信息使用 json tag 作为字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	zhT := zh.New()
	enT := en.New()
	// 第一个参数是 fallback 语言
	uni := ut.New(enT, zhT, enT)

	Trans, ok = uni.GetTranslator(locale)
	if !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}

	switch locale {
	case "zh":
		err = zh_translations.RegisterDefaultTranslations(v, Trans)
	default:
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	}
	return
}

// Struct 校验结构体，失败时返回 CodeInvalidParam 错误，消息为翻译后的字段提示
func Struct(obj any) error {
	initOnce.Do(func() {
		if Trans == nil {
			_ = InitTrans("en")
		}
	})
	err := binding.Validator.ValidateStruct(obj)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := RemoveTopStruct(validationErrs.Translate(Trans))
		msgs := make([]string, 0, len(fields))
		for _, msg := range fields {
			msgs = append(msgs, msg)
		}
		sort.Strings(msgs)
		return errorx.Wrap(err, errorx.CodeInvalidParam, strings.Join(msgs, "; "))
	}
	return errorx.Wrap(err, errorx.CodeInvalidParam, errorx.ErrInvalidParam.Msg)
}

// RemoveTopStruct 去除提示信息中的结构体名称
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string)
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator 实现 binding.StructValidator
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj interface{}) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() interface{} {
	return v.validator
}
