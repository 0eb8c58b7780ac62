package event

import (
	"reflect"
	"testing"
)

func TestPriority_String(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityCritical, "critical"},
		{PriorityHigh, "high"},
		{PriorityNormal, "normal"},
		{PriorityLow, "low"},
		{PriorityLowest, "lowest"},
		{Priority(1000), "lowest"},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestEmitter_PriorityOrder(t *testing.T) {
	var e Emitter[int]
	var order []string

	e.On(func(int) { order = append(order, "lowest") }, WithPriority(PriorityLowest))
	e.On(func(int) { order = append(order, "normal-1") })
	e.On(func(int) { order = append(order, "critical") }, WithPriority(PriorityCritical))
	e.On(func(int) { order = append(order, "low") }, WithPriority(PriorityLow))
	e.On(func(int) { order = append(order, "normal-2") })

	e.Emit(0)

	want := []string{"critical", "normal-1", "normal-2", "low", "lowest"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestEmitter_Once(t *testing.T) {
	var e Emitter[int]
	calls := 0
	sub := e.On(func(int) { calls++ }, WithOnce())

	e.Emit(1)
	e.Emit(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if sub.State() != SubscriptionStateCancelled {
		t.Errorf("state = %v, want cancelled", sub.State())
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestEmitter_CancelDuringEmit(t *testing.T) {
	var e Emitter[int]
	var second Subscription
	secondCalls := 0

	e.On(func(int) { second.Cancel() })
	second = e.On(func(int) { secondCalls++ })

	e.Emit(1)

	if secondCalls != 0 {
		t.Errorf("handler cancelled mid-emit was called %d times", secondCalls)
	}
}

func TestEmitter_SubscribeDuringEmit(t *testing.T) {
	var e Emitter[int]
	lateCalls := 0
	registered := false

	e.On(func(int) {
		if !registered {
			registered = true
			e.On(func(int) { lateCalls++ })
		}
	})

	e.Emit(1)
	if lateCalls != 0 {
		t.Errorf("handler registered mid-emit ran for the same value")
	}

	e.Emit(2)
	if lateCalls != 1 {
		t.Errorf("lateCalls = %d, want 1", lateCalls)
	}
}

func TestEmitter_Clear(t *testing.T) {
	var e Emitter[int]
	a := e.On(func(int) {})
	b := e.On(func(int) {})

	e.Clear()

	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
	if a.IsActive() || b.IsActive() {
		t.Error("subscriptions still active after Clear")
	}
}
