package names

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:  srv.URL,
		Token:    "secret",
		Timeout:  2 * time.Second,
		RetryMax: 1,
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClientList(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/bot/off-topic-channel-names" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Query().Has("random_items") {
			t.Error("unexpected random_items on plain list")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["ducks-go-quack", "lemon-hunting-season"]`))
	})

	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0] != "ducks-go-quack" {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestClientRandom(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("random_items"); got != "3" {
			t.Errorf("random_items = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`["a", "b", "c"]`))
	})

	got, err := c.Random(context.Background(), 3)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	if _, err := c.Random(context.Background(), 0); err == nil {
		t.Fatal("expected error for n=0")
	}
}

func TestClientAdd(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("name"); got != "spam-and-eggs" {
			t.Errorf("name = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.Add(context.Background(), "spam-and-eggs"); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestClientDelete(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/bot/off-topic-channel-names/spam-and-eggs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Delete(context.Background(), "spam-and-eggs"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestClientStatusError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "name already exists", http.StatusBadRequest)
	})

	err := c.Add(context.Background(), "dup")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *StatusError", err)
	}
	if se.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", se.Code)
	}
	if Recoverable(err) {
		t.Fatal("4xx should not be recoverable")
	}
}

func TestClientNotFound(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := c.Delete(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound = false for %v", err)
	}
}

func TestRecoverableTransportError(t *testing.T) {
	t.Parallel()
	if !Recoverable(errors.New("dial tcp: connection refused")) {
		t.Fatal("transport errors should be recoverable")
	}
	if Recoverable(nil) {
		t.Fatal("nil should not be recoverable")
	}
}
