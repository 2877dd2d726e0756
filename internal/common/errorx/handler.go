package errorx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	traceIDKey    = "trace_id"
	traceIDHeader = "X-Trace-Id"
)

// ErrorHandler renders APIErrors and logs them at the level of their severity
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger.Named("errorx")}
}

// HandleError aborts the request with the APIError form of err
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := ConvertToAPIError(err).Clone()
	apiErr.TraceID = ExtractTraceID(c)
	apiErr.Timestamp = time.Now().UTC().Format(time.RFC3339)

	h.log(c, apiErr, err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus, gin.H{"error": apiErr})
}

// ConvertToAPIError maps err onto an APIError. Context expiry becomes
// ErrRequestTimeout and anything unknown ErrInternalServer.
func ConvertToAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrRequestTimeout.WithDetail("original_error", err.Error())
	default:
		return ErrInternalServer.WithDetail("original_error", err.Error())
	}
}

func (h *ErrorHandler) log(c *gin.Context, apiErr *APIError, cause error) {
	fields := []zap.Field{
		zap.String("trace_id", apiErr.TraceID),
		zap.String("error_code", apiErr.Code),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	}
	if cause.Error() != apiErr.Error() {
		fields = append(fields, zap.Error(cause))
	}
	if len(apiErr.Details) > 0 {
		fields = append(fields, zap.Any("details", apiErr.Details))
	}

	switch apiErr.Severity {
	case SeverityInfo:
		h.logger.Info(apiErr.Message, fields...)
	case SeverityWarning:
		h.logger.Warn(apiErr.Message, fields...)
	case SeverityCritical:
		h.logger.Error(apiErr.Message, append(fields, zap.Stack("stack"))...)
	default:
		h.logger.Error(apiErr.Message, fields...)
	}
}

// ErrorMiddleware renders the last error a handler attached with c.Error
func (h *ErrorHandler) ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			h.HandleError(c, c.Errors.Last().Err)
		}
	}
}

// RecoveryMiddleware turns a panic into an ErrPanic response
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		h.HandleError(c, ErrPanic.WithDetail("panic", fmt.Sprint(recovered)))
	})
}

// ValidationError reports a rejected request field
func ValidationError(field, reason string) *APIError {
	return ErrInvalidInput.WithDetail("field", field).
		WithDetail("reason", reason).
		WithSuggestion(fmt.Sprintf("Fix the '%s' field and try again", field))
}

// NotFoundError creates a not found error for a specific resource
func NotFoundError(resourceType, identifier string) *APIError {
	return ErrResourceNotFound.WithDetail("resource_type", resourceType).
		WithDetail("identifier", identifier)
}

// ExtractTraceID prefers the active otel trace, then the X-Trace-Id header,
// and generates an id when neither is present.
func ExtractTraceID(c *gin.Context) string {
	if id := c.GetString(traceIDKey); id != "" {
		return id
	}

	id := c.GetHeader(traceIDHeader)
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		id = sc.TraceID().String()
	}
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(traceIDKey, id)
	return id
}
