// Package logging holds request-scoped identity and tracing context keys
// shared between middleware and handlers.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const (
	// UserIDKey carries the authenticated Supabase user id.
	UserIDKey contextKey = "user_id"
	// RoleKey carries the caller's role claim.
	RoleKey contextKey = "role"
	// AccessTokenKey carries the caller's raw bearer token for RLS
	// passthrough to PostgREST.
	AccessTokenKey contextKey = "access_token"
	// TraceIDKey carries the per-request trace id.
	TraceIDKey contextKey = "trace_id"
)

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id, or "" when anonymous.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRole returns a context carrying the caller's role.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, RoleKey, role)
}

// GetRole returns the caller's role, or "".
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}

// WithAccessToken returns a context carrying the caller's bearer token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, AccessTokenKey, token)
}

// GetAccessToken returns the caller's bearer token, or "".
func GetAccessToken(ctx context.Context) string {
	if v, ok := ctx.Value(AccessTokenKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceID returns a context carrying the trace id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id, or "".
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// NewTraceID generates a random 16-byte hex trace id.
func NewTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
