package lifecycle

import (
	"testing"
	"time"
)

func TestManagerWaitsForServices(t *testing.T) {
	m := NewManager()
	stopped := make(chan struct{})
	if err := m.Go("worker", func(h *Handle) {
		<-h.Done()
		close(stopped)
	}); err != nil {
		t.Fatalf("Go() error = %v", err)
	}

	m.Shutdown()
	if remaining := m.WaitWithTimeout(time.Second); len(remaining) != 0 {
		t.Fatalf("remaining services = %v, want none", remaining)
	}
	select {
	case <-stopped:
	default:
		t.Fatal("worker did not observe shutdown")
	}
}

func TestManagerReportsStuckServices(t *testing.T) {
	m := NewManager()
	h, err := m.NewServiceHandle("stuck")
	if err != nil {
		t.Fatalf("NewServiceHandle() error = %v", err)
	}
	defer h.Close()

	m.Shutdown()
	remaining := m.WaitWithTimeout(20 * time.Millisecond)
	if len(remaining) != 1 || remaining[0] != "stuck" {
		t.Fatalf("remaining services = %v, want [stuck]", remaining)
	}
}

func TestDuplicateServiceName(t *testing.T) {
	m := NewManager()
	h, err := m.NewServiceHandle("dup")
	if err != nil {
		t.Fatalf("NewServiceHandle() error = %v", err)
	}
	defer h.Close()
	if _, err := m.NewServiceHandle("dup"); err == nil {
		t.Fatal("expected error for duplicate service name")
	}
}

func TestHandleSleepInterrupted(t *testing.T) {
	m := NewManager()
	h, err := m.NewServiceHandle("sleeper")
	if err != nil {
		t.Fatalf("NewServiceHandle() error = %v", err)
	}
	defer h.Close()

	m.Shutdown()
	if err := h.Sleep(time.Hour); err == nil {
		t.Fatal("Sleep() should return the context error after shutdown")
	}
}
