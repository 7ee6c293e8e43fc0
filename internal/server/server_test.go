package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*Server, net.Listener) {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := New(handler, 0, time.Second, time.Second, 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return srv, ln
}

func serve(ctx context.Context, srv *Server, ln net.Listener) <-chan error {
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return done
}

func waitReady(t *testing.T, addr string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server at %s never became ready", addr)
}

func TestServe_ShutdownOrder(t *testing.T) {
	t.Parallel()

	srv, ln := newTestServer(t)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	srv.OnShutdown("audit-worker", record("audit-worker"))
	srv.OnShutdown("redis", record("redis"))

	ctx, cancel := context.WithCancel(context.Background())
	done := serve(ctx, srv, ln)
	waitReady(t, ln.Addr().String())
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "redis" || order[1] != "audit-worker" {
		t.Errorf("shutdown order = %v, want [redis audit-worker]", order)
	}
}

func TestServe_ShutdownErrors(t *testing.T) {
	t.Parallel()

	srv, ln := newTestServer(t)
	errBoom := errors.New("boom")
	srv.OnShutdown("failing", func(ctx context.Context) error { return errBoom })

	ctx, cancel := context.WithCancel(context.Background())
	done := serve(ctx, srv, ln)
	waitReady(t, ln.Addr().String())
	cancel()

	err := <-done
	if !errors.Is(err, errBoom) {
		t.Errorf("Serve() error = %v, want wrapped boom", err)
	}
}

func TestServe_ListenerFailure(t *testing.T) {
	t.Parallel()

	srv, ln := newTestServer(t)
	ln.Close()

	err := <-serve(context.Background(), srv, ln)
	if err == nil {
		t.Fatal("Serve() on a closed listener should fail")
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	srv := New(http.NotFoundHandler(), 8080, time.Second, time.Second, time.Second, slog.Default())
	if got := srv.Addr(); got != ":8080" {
		t.Errorf("Addr() = %q, want :8080", got)
	}
}
