// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"net/http"

	restful "github.com/emicklei/go-restful/v3"

	"milorg-admin/apperr"
)

// Envelope is the success body. Callers branch on Success, never on status alone.
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ErrorBody is the error member of a failed envelope.
type ErrorBody struct {
	Message    string         `json:"message"`
	Code       string         `json:"code"`
	StatusCode int            `json:"statusCode"`
	Field      string         `json:"field,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// Translator resolves user-facing messages for error codes.
type Translator interface {
	Message(lang, code, fallback string) string
}

// OK writes a 200 envelope.
func OK(resp *restful.Response, data any) {
	Write(resp, http.StatusOK, data, "")
}

// Created writes a 201 envelope.
func Created(resp *restful.Response, data any) {
	Write(resp, http.StatusCreated, data, "")
}

// Write writes a success envelope with status.
func Write(resp *restful.Response, status int, data any, message string) {
	_ = resp.WriteHeaderAndJson(status, Envelope{
		Success:    true,
		Data:       data,
		Message:    message,
		StatusCode: status,
	}, restful.MIME_JSON)
}

// Error writes err as a failed envelope. Unclassified errors are rendered as
// a generic SYSTEM error so internal details never leak.
func Error(req *restful.Request, resp *restful.Response, tr Translator, err error) {
	appErr := apperr.From(err)
	msg := appErr.Message
	generic := apperr.HasDefaultMessage(appErr)
	if appErr.Kind == apperr.KindSystem {
		msg, generic = apperr.ErrInternal.Message, true
	}
	if tr != nil && generic {
		lang := ""
		if req != nil {
			lang = req.HeaderParameter("Accept-Language")
		}
		msg = tr.Message(lang, appErr.Code, msg)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	_ = resp.WriteHeaderAndJson(status, ErrorEnvelope{
		Success: false,
		Error: ErrorBody{
			Message:    msg,
			Code:       appErr.Code,
			StatusCode: status,
			Field:      appErr.Field,
			Details:    appErr.Details,
		},
	}, restful.MIME_JSON)
}
