package simkernel

import "testing"

func TestStep_OrdersBySmallestTime(t *testing.T) {
	s := New()
	var order []string
	s.ScheduleAt(5, func(float64) { order = append(order, "b") })
	s.ScheduleAt(1, func(float64) { order = append(order, "a") })
	s.ScheduleAt(10, func(float64) { order = append(order, "c") })

	s.Run(100)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestStep_SameTimeFiresInInsertionOrder(t *testing.T) {
	s := New()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.ScheduleAt(3, func(float64) { order = append(order, i) })
	}
	s.Run(100)

	for i, v := range order {
		if v != i {
			t.Errorf("event %d fired out of insertion order: %v", i, order)
		}
	}
}

func TestCancel_IsIdempotentAndPreventsDispatch(t *testing.T) {
	s := New()
	fired := false
	h := s.ScheduleAt(1, func(float64) { fired = true })
	s.Cancel(h)
	s.Cancel(h) // idempotent
	s.Run(100)

	if fired {
		t.Errorf("cancelled event fired")
	}
}

func TestNow_AdvancesMonotonically(t *testing.T) {
	s := New()
	s.ScheduleAt(2, func(float64) {})
	s.ScheduleAt(7, func(float64) {})

	if s.Now() != 0 {
		t.Fatalf("expected initial clock at 0, got %v", s.Now())
	}
	s.Step()
	if s.Now() != 2 {
		t.Errorf("expected clock at 2 after first step, got %v", s.Now())
	}
	s.Step()
	if s.Now() != 7 {
		t.Errorf("expected clock at 7 after second step, got %v", s.Now())
	}
}

func TestRun_RespectsHorizon(t *testing.T) {
	s := New()
	count := 0
	s.ScheduleAt(1, func(float64) { count++ })
	s.ScheduleAt(50, func(float64) { count++ })
	s.Run(10)

	if count != 1 {
		t.Errorf("expected only the event before horizon to fire, count=%d", count)
	}
}

func TestPending_ReflectsCancellation(t *testing.T) {
	s := New()
	h := s.ScheduleAt(5, func(float64) {})
	if !s.Pending(h) {
		t.Errorf("expected handle to be pending before firing")
	}
	s.Cancel(h)
	if s.Pending(h) {
		t.Errorf("expected handle to not be pending after cancel")
	}
}
