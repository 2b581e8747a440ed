package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request) error {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}
	h := Chain(func(ctx context.Context, req *Request) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	if err := h(context.Background(), &Request{}); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(order, ","); got != "outer,inner,handler" {
		t.Fatalf("order = %s", got)
	}
}

func TestMWTimeoutAlwaysSetsDeadline(t *testing.T) {
	t.Parallel()

	check := func(ctx context.Context, req *Request) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}

	// zero falls back to the default instead of running unbounded
	if err := MWTimeout(0)(check)(context.Background(), &Request{}); err != nil {
		t.Fatalf("default timeout: %v", err)
	}
	if err := MWTimeout(time.Second)(check)(context.Background(), &Request{}); err != nil {
		t.Fatalf("explicit timeout: %v", err)
	}
}

func TestMWPanicRecover(t *testing.T) {
	t.Parallel()

	h := MWPanicRecover(discardLog())(func(ctx context.Context, req *Request) error {
		panic("boom")
	})
	err := h(context.Background(), &Request{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
}

func TestMWRequestLogPassesErrorThrough(t *testing.T) {
	t.Parallel()

	want := errors.New("nope")
	h := MWRequestLog(discardLog())(func(ctx context.Context, req *Request) error {
		return want
	})
	if err := h(context.Background(), &Request{}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
