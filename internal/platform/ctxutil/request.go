package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is the per-request carrier filled in by the HTTP middleware
// chain: correlation ids first, then the authenticated actor if any.
type RequestData struct {
	TraceID   string
	RequestID string

	TokenString string
	UserID      uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// EnsureRequestData returns the carrier already on ctx, attaching an empty
// one when there is none.
func EnsureRequestData(ctx context.Context) (context.Context, *RequestData) {
	if rd := GetRequestData(ctx); rd != nil {
		return ctx, rd
	}
	rd := &RequestData{}
	return WithRequestData(ctx, rd), rd
}

// ActorID returns the authenticated user id, or nil for anonymous requests.
func ActorID(ctx context.Context) *uuid.UUID {
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil
	}
	id := rd.UserID
	return &id
}

// LogFields renders the correlation ids and actor as logger key/values.
func LogFields(ctx context.Context) []interface{} {
	rd := GetRequestData(ctx)
	if rd == nil {
		return nil
	}
	var out []interface{}
	if rd.TraceID != "" {
		out = append(out, "trace_id", rd.TraceID)
	}
	if rd.RequestID != "" {
		out = append(out, "request_id", rd.RequestID)
	}
	if rd.UserID != uuid.Nil {
		out = append(out, "user_id", rd.UserID.String())
	}
	return out
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
