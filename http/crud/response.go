package crud

import (
	"encoding/json"
	"net/http"
)

// JSONResponse 一次待写出的 JSON 响应
type JSONResponse struct {
	status int
	body   any
}

// Send 写出状态码与 JSON 正文；body 为 nil 时只写状态码
func (r *JSONResponse) Send(w http.ResponseWriter) error {
	if r.body == nil {
		w.WriteHeader(r.status)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(r.status)
	return json.NewEncoder(w).Encode(r.body)
}

func OK(body any) *JSONResponse      { return &JSONResponse{status: http.StatusOK, body: body} }
func Created(body any) *JSONResponse { return &JSONResponse{status: http.StatusCreated, body: body} }
func NoContent() *JSONResponse       { return &JSONResponse{status: http.StatusNoContent} }

// ErrorBody 错误响应正文
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse 以标准状态文本作为 type
func ErrorResponse(status int, message string) *JSONResponse {
	return &JSONResponse{status: status, body: ErrorBody{Message: message, Type: http.StatusText(status)}}
}
