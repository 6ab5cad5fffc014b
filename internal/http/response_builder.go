package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/store"
	"bilancio/internal/trend"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status and no body.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write encodes the body and sends the response. Encoding failures become
// a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "component", "http", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrEmptyAccount,
	core.ErrEmptyCategory,
	core.ErrEmptyBudget,
	core.ErrZeroDate,
	core.ErrUnknownRecurrence,
	core.ErrUnknownTransactionType,
	core.ErrUnknownAccountType,
	core.ErrUnknownCategoryKind,
	core.ErrSystemCategory,
	core.ErrInvalidMonthKey,
	core.ErrInvalidCutoffDay,
	core.ErrCategoryNotFound,
	trend.ErrUnknownGranularity,
	services.ErrSameAccount,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorFor builds the response for err. Server errors are logged and their
// details withheld from the client.
func errorFor(ctx context.Context, err error) *JSONResponseBuilder {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Request failed", "component", "http", "error", err)
		if status == http.StatusServiceUnavailable {
			return ErrorResponse(status, "request timed out")
		}
		return InternalServerError()
	}
	return ErrorResponse(status, err.Error())
}
