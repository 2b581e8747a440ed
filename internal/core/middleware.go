package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Middleware func(next HandlerFunc) HandlerFunc

// Chain wraps h with the given middleware; the first listed runs outermost.
func Chain(h HandlerFunc, m ...Middleware) HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// defaultHandleTimeout bounds a single chat command. Most handlers do one
// or two site API calls plus a send; anything slower is stuck.
const defaultHandleTimeout = 30 * time.Second

// MWTimeout enforces a per-command deadline. A non-positive d falls back
// to defaultHandleTimeout instead of running unbounded.
func MWTimeout(d time.Duration) Middleware {
	if d <= 0 {
		d = defaultHandleTimeout
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			cctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(cctx, req)
		}
	}
}

// MWPanicRecover converts a handler panic into an error so one bad update
// cannot take down a dispatch worker.
func MWPanicRecover(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					reqLogger(log, req).Error("handler panicked",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// MWRequestLog logs one line per handled command. The request logger
// already carries rid/chat/user context, so only the outcome is added here.
func MWRequestLog(log *slog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) error {
			start := time.Now()
			err := next(ctx, req)
			logger := reqLogger(log, req)
			if err != nil {
				logger.Warn("command failed", slog.Duration("dur", time.Since(start)), slog.Any("err", err))
			} else {
				logger.Info("command handled", slog.Duration("dur", time.Since(start)))
			}
			return err
		}
	}
}

func reqLogger(log *slog.Logger, req *Request) *slog.Logger {
	if req != nil && req.Logger != nil {
		return req.Logger
	}
	return log
}
