package main

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userContextKey      = contextKey("user")
	requestIDContextKey = contextKey("request_id")
)

// anonymousUser is the user id of a request without credentials.
const anonymousUser = ""

func (app *application) createUserContext(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, userID)
	return r.WithContext(ctx)
}

// getUserContext returns the authenticated user id, or anonymousUser.
func (app *application) getUserContext(r *http.Request) string {
	userID, ok := r.Context().Value(userContextKey).(string)
	if !ok {
		return anonymousUser
	}
	return userID
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}
