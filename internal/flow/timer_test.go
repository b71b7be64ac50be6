package flow

import (
	"testing"
	"time"
)

func TestSimpleTimerFires(t *testing.T) {
	st := NewSimpleTimer()
	defer st.Stop()

	fired := make(chan struct{})
	id, err := st.ScheduleAfter(20*time.Millisecond, func() { close(fired) })
	if err != nil {
		t.Fatal(err)
	}

	if remaining, ok := st.Remaining(id); !ok || remaining <= 0 {
		t.Errorf("remaining = %v %v, want positive before firing", remaining, ok)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	// The entry is cleaned up once the callback ran.
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := st.Remaining(id); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timer entry never removed after firing")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSimpleTimerCancel(t *testing.T) {
	st := NewSimpleTimer()
	defer st.Stop()

	fired := make(chan struct{}, 1)
	id, err := st.ScheduleAfter(30*time.Millisecond, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Cancel(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Remaining(id); ok {
		t.Error("cancelled timer should not report remaining time")
	}

	select {
	case <-fired:
		t.Error("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}

	// Cancelling an unknown handle is a no-op.
	if err := st.Cancel("timer_999"); err != nil {
		t.Errorf("cancel of unknown handle returned %v", err)
	}
}

func TestSimpleTimerStopCancelsAll(t *testing.T) {
	st := NewSimpleTimer()
	fired := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		if _, err := st.ScheduleAfter(30*time.Millisecond, func() { fired <- struct{}{} }); err != nil {
			t.Fatal(err)
		}
	}
	st.Stop()

	select {
	case <-fired:
		t.Error("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
