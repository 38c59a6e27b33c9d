package handler

import (
	"errors"
	"net/http"

	"contract_chat_server/pkg/errorx"
	"contract_chat_server/pkg/util/validate"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// writeEnvelope 统一的 {code, msg, data} 响应，HTTP 状态码始终为 200
func writeEnvelope(c *gin.Context, code int, msg any, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": code,
		"msg":  msg,
		"data": data,
	})
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	writeEnvelope(c, errorx.CodeSuccess, "success", data)
}

// HandleError 业务错误原样返回错误码，其他错误记录日志后返回服务繁忙
func HandleError(c *gin.Context, err error) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		writeEnvelope(c, codeErr.Code, codeErr.Msg, nil)
		return
	}

	zap.L().Error("system error",
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
	writeEnvelope(c, errorx.ErrServerBusy.Code, errorx.ErrServerBusy.Msg, nil)
}

// HandleParamError 参数绑定失败
// 校验错误返回按字段翻译后的提示，其余错误（如类型不匹配）返回通用提示
func HandleParamError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeEnvelope(c, errorx.ErrInvalidParam.Code, validate.RemoveTopStruct(validationErrs.Translate(validate.Trans)), nil)
		return
	}

	zap.L().Info("param bind error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	writeEnvelope(c, errorx.ErrInvalidParam.Code, errorx.ErrInvalidParam.Msg, nil)
}
