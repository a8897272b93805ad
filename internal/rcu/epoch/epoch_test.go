package epoch

import "testing"

func TestNewGlobalStartsOnline(t *testing.T) {
	g := NewGlobal()
	if got := g.Load(); got != Online {
		t.Errorf("Load() = %d, want %d", got, Online)
	}
}

func TestBumpSingleStaysOdd(t *testing.T) {
	g := NewGlobal()
	for i := 0; i < 10; i++ {
		got := g.BumpSingle()
		if got&1 == 0 {
			t.Fatalf("BumpSingle() = %d, want odd (online bit preserved)", got)
		}
	}
}

func TestBumpSingleAdvancesByStep(t *testing.T) {
	g := NewGlobal()
	before := g.Load()
	after := g.BumpSingle()
	if after != before+CtrStep {
		t.Errorf("BumpSingle() = %d, want %d", after, before+CtrStep)
	}
}

func TestToggleParityRoundTrips(t *testing.T) {
	g := NewGlobal()
	start := g.Load()
	first := g.ToggleParity()
	if first == start {
		t.Fatalf("ToggleParity() did not change value")
	}
	second := g.ToggleParity()
	if second != start {
		t.Errorf("two ToggleParity() calls = %d, want back to %d", second, start)
	}
}

func TestClassifyInactive(t *testing.T) {
	if got := Classify(0, Online, SinglePhase64); got != Inactive {
		t.Errorf("Classify(0, ...) = %v, want Inactive", got)
	}
}

func TestClassifySinglePhase(t *testing.T) {
	cases := []struct {
		reader, global Ctr
		want           State
	}{
		{Online, Online, ActiveCurrent},
		{Online, Online + CtrStep, ActiveOld},
		{Online + CtrStep, Online + CtrStep, ActiveCurrent},
	}
	for _, c := range cases {
		if got := Classify(c.reader, c.global, SinglePhase64); got != c.want {
			t.Errorf("Classify(%d, %d, SinglePhase64) = %v, want %v", c.reader, c.global, got, c.want)
		}
	}
}

func TestClassifyTwoSubphase(t *testing.T) {
	cases := []struct {
		reader, global Ctr
		want           State
	}{
		{1, 1, ActiveCurrent},  // both parity 0
		{1, 3, ActiveOld},      // reader parity 0, global parity 1
		{3, 3, ActiveCurrent},  // both parity 1
		{3, 1, ActiveOld},
	}
	for _, c := range cases {
		if got := Classify(c.reader, c.global, TwoSubphase32); got != c.want {
			t.Errorf("Classify(%d, %d, TwoSubphase32) = %v, want %v", c.reader, c.global, got, c.want)
		}
	}
}
