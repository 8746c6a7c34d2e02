package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"testing"
	"time"

	"videotouch-go/internal/session"
	"videotouch-go/internal/simulator"
	"videotouch-go/internal/types"
)

func freeEndpoint(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return fmt.Sprintf("tcp://127.0.0.1:%d", port)
}

func TestZMQRecvTimesOut(t *testing.T) {
	conn, err := Bind(freeEndpoint(t), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Recv(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestZMQServeEndsOnSentinel(t *testing.T) {
	endpoint := freeEndpoint(t)
	server, err := Bind(endpoint, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Bind error: %v", err)
	}
	defer server.Close()

	client, err := Dial(endpoint, 2*time.Second)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}

	records := make(chan types.FrameRecord, 4)
	acc := session.New()
	type result struct {
		summary Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := Serve(context.Background(), server, acc, Options{Records: records})
		done <- result{summary, err}
	}()

	payload := simulator.Format(simulator.Hand(1, 100, rand.New(rand.NewSource(11))))
	if err := client.Send(payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	reply, err := client.Recv()
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if reply != "Got "+payload {
		t.Fatalf("unexpected reply %q", reply)
	}

	// Closing right after the send must not drop the sentinel.
	if err := client.Send(session.Sentinel); err != nil {
		t.Fatalf("sentinel Send error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Serve error: %v", res.err)
		}
		if !res.summary.Stopped || res.summary.Received != 2 || res.summary.Decoded != 1 {
			t.Fatalf("unexpected summary: %+v", res.summary)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not stop on sentinel")
	}
	if acc.State() != session.Stopped {
		t.Fatalf("unexpected state: %s", acc.State())
	}
	if len(records) != 1 {
		t.Fatalf("unexpected forwarded records: %d", len(records))
	}
}
