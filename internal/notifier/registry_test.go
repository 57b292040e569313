package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/theta/internal/alert"
)

type mockNotifier struct {
	name       string
	sendCalled int
	last       Notification
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Send(_ context.Context, n Notification) error {
	m.sendCalled++
	m.last = n
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected test, got %s", n.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for missing notifier")
	}
}

func TestRegistry_GetAll_Sorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	if len(all) != 2 || all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("unexpected order: %v", all)
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	n := Notification{
		EvaluationID: "eval-1",
		Alerts:       []alert.Alert{{Rule: "assets_skipped", Severity: alert.SeverityInfo, Value: 1}},
	}
	errs := r.NotifyAll(context.Background(), n)

	if ok.sendCalled != 1 || bad.sendCalled != 1 {
		t.Errorf("expected one send each, got ok=%d bad=%d", ok.sendCalled, bad.sendCalled)
	}
	if ok.last.EvaluationID != "eval-1" {
		t.Errorf("expected eval-1, got %s", ok.last.EvaluationID)
	}
	if len(errs) != 1 || errs["bad"] == nil {
		t.Errorf("expected only bad to fail, got %v", errs)
	}
}
