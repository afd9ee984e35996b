package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestHealthFollowsDatabase(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := &fakePinger{}
	srv := NewServer(db, logger)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	serveCtx, stop := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(serveCtx, lis) }()

	client, err := Dial(ctx, ClientConfig{Address: lis.Addr().String()}, logger)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	for _, service := range []string{"", ServiceName} {
		status, err := client.Check(ctx, service)
		if err != nil {
			t.Fatalf("Check(%q) failed: %v", service, err)
		}
		if status != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("Check(%q) = %v, want SERVING", service, status)
		}
	}

	db.set(errors.New("database is locked"))
	if got := srv.Refresh(ctx); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Refresh = %v, want NOT_SERVING", got)
	}
	status, err := client.Check(ctx, ServiceName)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", status)
	}

	stop()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestDialFailsFast(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	_, err = Dial(context.Background(), ClientConfig{Address: addr, ConnectTimeout: 300 * time.Millisecond}, nil)
	if err == nil {
		t.Fatal("expected dial to an unused port to fail")
	}
}
