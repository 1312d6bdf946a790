package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey string

const refreshIDKey contextKey = "taskboard.refresh_id"

// WithRefreshID tags every request made with ctx as part of one refresh.
func WithRefreshID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, refreshIDKey, id)
}

func RefreshIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(refreshIDKey).(string)
	return v
}

type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

// NewLoggingTransport logs each outgoing request and the response it gets.
func NewLoggingTransport(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	rid := RefreshIDFromContext(ctx)

	t.logger.InfoContext(ctx, "api_request",
		"method", req.Method,
		"url", req.URL.String(),
		"refresh_id", rid,
	)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	dur := time.Since(start)

	if err != nil {
		t.logger.WarnContext(ctx, "api_request_failed",
			"method", req.Method,
			"url", req.URL.String(),
			"refresh_id", rid,
			"duration_ms", dur.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	t.logger.InfoContext(ctx, "api_response",
		"method", req.Method,
		"url", req.URL.String(),
		"refresh_id", rid,
		"status", resp.StatusCode,
		"duration_ms", dur.Milliseconds(),
	)
	return resp, nil
}
