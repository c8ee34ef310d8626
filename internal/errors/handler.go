package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the wire form of an application error.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// statusFor maps each taxonomy kind to an HTTP status. Every kind gets a
// distinct error code so the caller can always tell them apart.
func statusFor(t ErrorType) int {
	switch t {
	case ErrTypeParse, ErrTypeEmptyTable:
		return http.StatusUnprocessableEntity
	case ErrTypePivot, ErrTypeInsufficientData, ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler provides centralized error rendering with logging.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to an APIError and responds with it.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	apiErr := toAPIError(err)

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	if renderErr := render.Render(w, r, apiErr); renderErr != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

func toAPIError(err error) *APIError {
	if app, ok := AsAppError(err); ok {
		apiErr := &APIError{
			StatusCode: statusFor(app.Type),
			ErrorCode:  string(app.Type),
			Message:    app.Message,
		}
		if app.Cause != nil {
			apiErr.Detail = app.Cause.Error()
		}
		return apiErr
	}
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  "INTERNAL",
		Message:    "internal server error",
		Detail:     err.Error(),
	}
}
