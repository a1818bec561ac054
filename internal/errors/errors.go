// Package errors builds gofulmen error envelopes for dailypick and renders
// them as HTTP responses. Store, limiter and selection failures are mapped to
// stable codes here so the CLI and the API report them the same way.
package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"

	"github.com/dailypick/dailypick/internal/core/engine"
	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/server/middleware"
)

// Error codes shared by the HTTP surface and the CLI.
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"
	CodeNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeDatabase      = "DATABASE_ERROR"
	CodeTimeout       = "TIMEOUT"
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	CodeUpstream      = "EXTERNAL_SERVICE_ERROR"
)

// wrappedErrorKey holds the underlying error text in the envelope context.
// It is logged but only returned to callers on 4xx responses.
const wrappedErrorKey = "wrapped_error"

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotAllowed, message)
}

// NewRateLimitedError reports a throttled request. retryAfter is in whole
// seconds and is echoed as the Retry-After header.
func NewRateLimitedError(message string, retryAfter int) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeRateLimited, message).WithDetails(map[string]interface{}{
		"retry_after_seconds": retryAfter,
	})
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewDatabaseError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeDatabase, message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeConfigInvalid, message)
}

// NewUnavailableError reports a dependency that is not running.
func NewUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeUnavailable, message)
}

// Wrap builds an envelope with code around err, taking the correlation ID from
// the request in ctx.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestIDOrNew(ctx)
	envelope := errors.NewErrorEnvelope(code, message).
		WithCorrelationID(id).
		WithTraceID(id)
	if err == nil {
		return envelope
	}
	if withCause, ctxErr := envelope.WithContext(map[string]interface{}{wrappedErrorKey: err.Error()}); ctxErr == nil {
		envelope = withCause
	}
	return envelope
}

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInvalidInput, err, message)
}

func WrapNotFound(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeNotFound, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, message)
}

func WrapDatabaseError(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDatabase, err, message)
}

func WrapTimeout(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeTimeout, err, message)
}

// WrapUpstream reports a failed call to a dependency at target.
func WrapUpstream(ctx context.Context, err error, message, target string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeUpstream, err, message).WithDetails(map[string]interface{}{
		"target": target,
	})
}

// WrapRateLimited converts a limiter denial into a RATE_LIMITED envelope.
func WrapRateLimited(ctx context.Context, rle *engine.RateLimitError) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeRateLimited, rle, "rate limit exceeded").WithDetails(map[string]interface{}{
		"key":                 rle.Key,
		"retry_after_seconds": rle.RetryAfterSeconds,
	})
}

// Classify maps domain errors onto envelopes: limiter denials become
// RATE_LIMITED, missing records NOT_FOUND, deadlines TIMEOUT. Anything else
// is reported as a database failure since every read goes through the store.
func Classify(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	if err == nil {
		return nil
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	var rle *engine.RateLimitError
	switch {
	case stderrors.As(err, &rle):
		return WrapRateLimited(ctx, rle)
	case stderrors.Is(err, store.ErrNotFound):
		return WrapNotFound(ctx, err, message)
	case stderrors.Is(err, context.DeadlineExceeded):
		return WrapTimeout(ctx, err, message)
	default:
		return WrapDatabaseError(ctx, err, message)
	}
}

// RetryAfterSeconds returns the retry hint carried by a RATE_LIMITED envelope.
func RetryAfterSeconds(envelope *errors.ErrorEnvelope) (int, bool) {
	if envelope == nil || envelope.Code != CodeRateLimited {
		return 0, false
	}
	switch v := envelope.Details["retry_after_seconds"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// EnsureEnvelope returns err as an envelope, classifying plain errors as
// INTERNAL_ERROR.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	var envelope *errors.ErrorEnvelope
	switch {
	case err == nil:
		envelope = errors.NewErrorEnvelope(CodeInternal, "unexpected nil error")
		if severe, sevErr := envelope.WithSeverity(errors.SeverityCritical); sevErr == nil {
			envelope = severe
		}
		return envelope
	case stderrors.As(err, &envelope) && envelope != nil:
		return envelope
	}

	envelope = Wrap(context.Background(), CodeInternal, err, "unexpected error")
	if severe, sevErr := envelope.WithSeverity(errors.SeverityHigh); sevErr == nil {
		envelope = severe
	}
	return envelope
}

// EnsureCorrelationID fills in the request ID from ctx when the envelope has
// none yet.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return envelope.WithCorrelationID(id)
		}
	}
	return envelope.WithCorrelationID("fallback-" + errors.GenerateCorrelationID())
}

func requestIDOrNew(ctx context.Context) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
