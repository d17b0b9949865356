package crud

import (
	stderrors "errors"
	"net/http"

	"crudkit/errors"
	"crudkit/logging"
)

// UnexpectedErrorMessage 未归类错误对外暴露的固定文案
const UnexpectedErrorMessage = "An unexpected error occurred!"

// ErrorHandler 把编排层返回的错误渲染为 HTTP 响应
type ErrorHandler struct {
	logger logging.Logger
}

// NewErrorHandler logger 为 nil 时使用全局日志器
func NewErrorHandler(logger logging.Logger) *ErrorHandler {
	if logger == nil {
		logger = logging.GetLogger().WithFields(logging.String("component", "http.crud"))
	}
	return &ErrorHandler{logger: logger}
}

// Response 领域错误按其状态码输出；校验与输入错误为 400；其余一律 500 并记录日志
func (h *ErrorHandler) Response(r *http.Request, err error) *JSONResponse {
	var crudErr *errors.CRUDError
	if stderrors.As(err, &crudErr) {
		return &JSONResponse{status: crudErr.StatusCode, body: ErrorBody{Message: crudErr.Message, Type: crudErr.Status}}
	}

	if errors.IsValidation(err) || errors.IsErrorCode(err, errors.ErrCodeInvalidInput) {
		return ErrorResponse(http.StatusBadRequest, messageOf(err))
	}

	h.logger.Error(r.Context(), "unhandled error",
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Error(err))
	return ErrorResponse(http.StatusInternalServerError, UnexpectedErrorMessage)
}

// Handle 写出错误响应
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	_ = h.Response(r, err).Send(w)
}

func messageOf(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
