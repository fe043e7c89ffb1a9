package domain

import "testing"

func TestAngleTracker_Step(t *testing.T) {
	tr := NewAngleTracker()
	tr.SetTarget(5)

	want := []int{2, 4, 5}
	for i, w := range want {
		s, moved := tr.Step(2)
		if !moved {
			t.Fatalf("step %d: moved = false", i)
		}
		if s.Current != w {
			t.Fatalf("step %d: current = %d, want %d", i, s.Current, w)
		}
	}
	if _, moved := tr.Step(2); moved {
		t.Error("Step moved after reaching target")
	}
	if !tr.Snapshot().Settled() {
		t.Error("Settled() = false at target")
	}
}

func TestAngleTracker_StepNegative(t *testing.T) {
	tr := NewAngleTracker()
	tr.SetTarget(-3)

	s, _ := tr.Step(2)
	if s.Current != -2 {
		t.Fatalf("current = %d, want -2", s.Current)
	}
	s, _ = tr.Step(2)
	if s.Current != -3 {
		t.Fatalf("current = %d, want -3", s.Current)
	}
}

func TestAngleTracker_StepJump(t *testing.T) {
	tr := NewAngleTracker()
	tr.SetTarget(1000)

	s, moved := tr.Step(0)
	if !moved || s.Current != 1000 {
		t.Errorf("Step(0) = %+v moved=%v, want jump to 1000", s, moved)
	}
}

func TestAngleTracker_RetargetMidway(t *testing.T) {
	tr := NewAngleTracker()
	tr.SetTarget(10)
	tr.Step(4)
	tr.SetTarget(-10)

	s, _ := tr.Step(4)
	if s.Current != 0 || s.Target != -10 {
		t.Errorf("state = %+v, want current 0 target -10", s)
	}
}
