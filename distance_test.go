package dendro

import (
	"math"
	"testing"
)

const floatTol = 1e-10

func TestEuclideanDistance(t *testing.T) {
	m := EuclideanMetric{}

	a := []float64{1, 2, 3}
	if d := m.Distance(a, a); d != 0 {
		t.Errorf("self-distance: got %f, want 0", d)
	}

	// sqrt((4-1)^2 + (6-2)^2 + (3-3)^2) = sqrt(9+16+0) = 5
	if d := m.Distance(a, []float64{4, 6, 3}); math.Abs(d-5) > floatTol {
		t.Errorf("got %f, want 5", d)
	}

	// sqrt(2) between orthogonal unit vectors
	if d := m.Distance([]float64{1, 0, 0}, []float64{0, 1, 0}); math.Abs(d-math.Sqrt(2)) > floatTol {
		t.Errorf("got %f, want %f", d, math.Sqrt(2))
	}
}

func TestManhattanDistance(t *testing.T) {
	m := ManhattanMetric{}
	// |4-1| + |6-2| + |3-3| = 7
	if d := m.Distance([]float64{1, 2, 3}, []float64{4, 6, 3}); math.Abs(d-7) > floatTol {
		t.Errorf("got %f, want 7", d)
	}
}

func TestChebyshevDistance(t *testing.T) {
	m := ChebyshevMetric{}
	// max(|4-1|, |6-2|, |3-3|) = 4
	if d := m.Distance([]float64{1, 2, 3}, []float64{4, 6, 3}); math.Abs(d-4) > floatTol {
		t.Errorf("got %f, want 4", d)
	}
}

func TestMinkowskiDistance(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{4, 6, 3}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"p=1 is Manhattan", 1, ManhattanMetric{}.Distance(a, b)},
		{"p=2 is Euclidean", 2, EuclideanMetric{}.Distance(a, b)},
		// (3^3 + 4^3)^(1/3) = 91^(1/3)
		{"p=3", 3, math.Cbrt(91)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MinkowskiMetric{P: tc.p}.Distance(a, b)
			if math.Abs(got-tc.want) > floatTol {
				t.Errorf("got %f, want %f", got, tc.want)
			}
		})
	}

	t.Run("p below 1 panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic for P=0.5")
			}
		}()
		MinkowskiMetric{P: 0.5}.Distance(a, b)
	})
}

func TestCosineDistance(t *testing.T) {
	m := CosineMetric{}

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 1},
		{"parallel", []float64{1, 2}, []float64{2, 4}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 2},
		// Zero vectors must not produce NaN.
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Distance(tc.a, tc.b)
			if math.IsNaN(got) || math.Abs(got-tc.want) > floatTol {
				t.Errorf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestDistanceFunc(t *testing.T) {
	calls := 0
	f := DistanceFunc(func(a, b []float64) float64 {
		calls++
		return math.Abs(a[0] - b[0])
	})

	if d := f.Distance([]float64{1}, []float64{4}); d != 3 {
		t.Errorf("got %f, want 3", d)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
