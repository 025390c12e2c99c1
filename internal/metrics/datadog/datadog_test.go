package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"csvpipe/internal/metrics"
)

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("expected error for empty Addr")
	}
}

func TestLabelsToTags(t *testing.T) {
	t.Parallel()
	got := labelsToTags(metrics.Labels{"step": "parse", "job": "csvpipe", "status": "success"})
	want := []string{"job:csvpipe", "status:success", "step:parse"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("nil labels should give nil tags")
	}
}

/*
TestCountReachesAgent listens on a local UDP socket standing in for the
DogStatsD agent and checks that a counter arrives on Flush.
*/
func TestCountReachesAgent(t *testing.T) {
	t.Parallel()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 4, metrics.Labels{"kind": "parsed"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	buf := make([]byte, 4096)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		if strings.Contains(string(buf[:n]), metrics.RecordsTotal+":4|c") {
			return
		}
	}
	t.Fatal("counter packet not received")
}

func TestZeroBackendIsSafe(t *testing.T) {
	t.Parallel()
	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
}
