package exercise

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestAccuracy verifies the linear falloff around the target.
func TestAccuracy(t *testing.T) {
	tests := []struct {
		name             string
		cur, target, tol float64
		want             float64
	}{
		{"on target", 170, 170, 10, 100},
		{"one tolerance short", 160, 170, 10, 67},
		{"one tolerance over", 180, 170, 10, 67},
		{"three tolerances", 140, 170, 10, 0},
		{"far away", 0, 170, 10, 0},
		{"zero tolerance hit", 5, 5, 0, 100},
		{"zero tolerance miss", 4, 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accuracy(tt.cur, tt.target, tt.tol); got != tt.want {
				t.Errorf("Accuracy(%v, %v, %v) = %v, want %v", tt.cur, tt.target, tt.tol, got, tt.want)
			}
		})
	}
}

// TestAccuracyMonotonic verifies accuracy never rises as the angle moves away from target.
func TestAccuracyMonotonic(t *testing.T) {
	prev := 101.0
	for d := 0.0; d <= 40; d += 0.5 {
		got := Accuracy(20+d, 20, 8)
		if got > prev || got < 0 || got > 100 {
			t.Fatalf("Accuracy at distance %v = %v (previous %v)", d, got, prev)
		}
		prev = got
	}
}

// TestArmAccuracy verifies the phase-dependent ramp.
func TestArmAccuracy(t *testing.T) {
	tests := []struct {
		phase Phase
		angle float64
		want  float64
	}{
		{PhaseRest, 30, 50},
		{PhaseRaising, 10, 50},
		{PhaseRaising, 30, 73},
		{PhaseRaising, 80, 95},
		{PhaseHolding, 40, 95},
		{PhaseLowering, 50, 50},
		{PhaseLowering, 10, 95},
	}
	for _, tt := range tests {
		if got := armAccuracy(tt.phase, tt.angle); got != tt.want {
			t.Errorf("armAccuracy(%s, %v) = %v, want %v", tt.phase, tt.angle, got, tt.want)
		}
	}
}

// TestDescribe verifies mean, population std and range.
func TestDescribe(t *testing.T) {
	s := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Std != 2 || s.Min != 2 || s.Max != 9 || s.Count != 8 {
		t.Errorf("Describe = %+v", s)
	}
	if empty := Describe(nil); empty != (AngleStats{}) {
		t.Errorf("Describe(nil) = %+v", empty)
	}
}

// TestConsistency covers the sample minimum, the window and the clamp.
func TestConsistency(t *testing.T) {
	tests := []struct {
		name   string
		angles []float64
		want   float64
	}{
		{"too few", []float64{10, 10, 10, 10}, 0},
		{"steady", []float64{30, 30, 30, 30, 30}, 100},
		{"std 10", []float64{20, 40, 20, 40, 20, 40}, 50},
		{"std 20 clamps", []float64{0, 40, 0, 40, 0, 40}, 0},
		{"wild clamps", []float64{0, 90, 0, 90, 0, 90}, 0},
		// Only the last ten count.
		{"window", []float64{0, 90, 0, 90, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Consistency(tt.angles); got != tt.want {
				t.Errorf("Consistency = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGrade verifies the quality thresholds.
func TestGrade(t *testing.T) {
	tests := []struct {
		acc, comp, cons float64
		want            string
	}{
		{100, 100, 100, QualityExcellent},
		{90, 80, 85, QualityExcellent},
		{70, 70, 70, QualityGood},
		{60, 50, 30, QualityFair},
		{20, 30, 0, QualityNeedsImprovement},
		{100, 400, 0, QualityGood},
	}
	for _, tt := range tests {
		if got := Grade(tt.acc, tt.comp, tt.cons); got != tt.want {
			t.Errorf("Grade(%v, %v, %v) = %s, want %s", tt.acc, tt.comp, tt.cons, got, tt.want)
		}
	}
}

// TestHistoryEvictsOldest verifies the FIFO bound.
func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(HistoryCapacity)
	for i := range 150 {
		h.Push(float64(i), epoch.Add(time.Duration(i)*time.Second))
	}
	if h.Len() != HistoryCapacity {
		t.Fatalf("Len = %d, want %d", h.Len(), HistoryCapacity)
	}
	vals := h.Values()
	if vals[0] != 50 || vals[len(vals)-1] != 149 {
		t.Errorf("values span %v..%v, want 50..149", vals[0], vals[len(vals)-1])
	}
	last := h.Last(3)
	if len(last) != 3 || last[0] != 147 || last[2] != 149 {
		t.Errorf("Last(3) = %v", last)
	}
	h.Clear()
	if h.Len() != 0 || len(h.Values()) != 0 {
		t.Error("expected empty history after Clear")
	}
}

// TestStatisticsAverageAccuracy verifies the rounded mean of recorded accuracy.
func TestStatisticsAverageAccuracy(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDLegForward)
	for _, deg := range []float64{170, 160, 150} {
		h.feed(tick, legFrame(deg))
	}
	stats := h.tr.Stop()
	// 100, 67, 33
	if stats.AverageAccuracy != 67 {
		t.Errorf("AverageAccuracy = %v, want 67", stats.AverageAccuracy)
	}
	if math.Abs(stats.AngleStatistics.Mean-160) > 1e-9 {
		t.Errorf("angle mean = %v, want 160", stats.AngleStatistics.Mean)
	}
	if stats.Consistency != 0 {
		t.Errorf("Consistency with 3 samples = %v, want 0", stats.Consistency)
	}
}

// TestCatalog verifies lookups and target overrides.
func TestCatalog(t *testing.T) {
	cat := DefaultCatalog()
	all := cat.All()
	if len(all) != 4 {
		t.Fatalf("catalog has %d exercises, want 4", len(all))
	}
	for _, d := range all {
		if d.TargetReps != 10 || d.TargetSets != 2 || len(d.Landmarks) == 0 || len(d.Kind.Phases()) == 0 {
			t.Errorf("unexpected definition %+v", d)
		}
		if d.Kind.String() != d.ID {
			t.Errorf("Kind %v does not map to id %s", d.Kind, d.ID)
		}
	}

	custom, err := cat.WithTargets(map[string]Targets{IDNeckTilt: {Reps: 6}})
	if err != nil {
		t.Fatal(err)
	}
	d, _ := custom.Lookup(IDNeckTilt)
	if d.TargetReps != 6 || d.TargetSets != 2 {
		t.Errorf("override = %d×%d, want 6×2", d.TargetReps, d.TargetSets)
	}
	if orig, _ := cat.Lookup(IDNeckTilt); orig.TargetReps != 10 {
		t.Error("override mutated the original catalog")
	}

	if _, err := cat.WithTargets(map[string]Targets{"cartwheel": {Reps: 1}}); !errors.Is(err, ErrUnknownExercise) {
		t.Errorf("WithTargets unknown id error = %v", err)
	}
}

// TestParseLocale verifies accepted locales.
func TestParseLocale(t *testing.T) {
	for in, want := range map[string]Locale{"": LocaleEnglish, "en": LocaleEnglish, "th": LocaleThai} {
		got, err := ParseLocale(in)
		if err != nil || got != want {
			t.Errorf("ParseLocale(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseLocale("fr"); err == nil {
		t.Error("expected error for unsupported locale")
	}
}
