package vector

import (
	"math"
	"testing"
)

func TestNorm(t *testing.T) {
	if got := Norm([]float32{3, 4}); got != 5 {
		t.Errorf("Norm([3 4]) = %v, want 5", got)
	}
	if got := Norm(nil); got != 0 {
		t.Errorf("Norm(nil) = %v, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsUnit(v, 1e-6) {
		t.Errorf("normalized norm = %v", Norm(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("Normalize([3 4]) = %v", v)
	}
}

func TestNormalize_Zero(t *testing.T) {
	if _, err := Normalize([]float32{0, 0, 0}); err == nil {
		t.Fatal("expected error for zero vector")
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{2, 0}
	_, _ = Normalize(in)
	if in[0] != 2 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestFinite(t *testing.T) {
	if !Finite([]float32{0, 1, -1}) {
		t.Error("expected finite")
	}
	if Finite([]float32{float32(math.NaN())}) {
		t.Error("NaN reported as finite")
	}
	if Finite([]float32{float32(math.Inf(1))}) {
		t.Error("Inf reported as finite")
	}
}

func TestMeanPool(t *testing.T) {
	tokens := [][]float32{{1, 0}, {0, 1}, {100, 100}}

	tests := []struct {
		name string
		mask []bool
		want []float32
	}{
		{"masked padding", []bool{true, true, false}, []float32{0.5, 0.5}},
		{"nil mask", nil, []float32{101.0 / 3, 101.0 / 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MeanPool(tokens, tc.mask)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range tc.want {
				if math.Abs(float64(got[i]-tc.want[i])) > 1e-4 {
					t.Errorf("MeanPool()[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestMeanPool_Errors(t *testing.T) {
	if _, err := MeanPool(nil, nil); err == nil {
		t.Error("expected error for zero tokens")
	}
	if _, err := MeanPool([][]float32{{1}}, []bool{false}); err == nil {
		t.Error("expected error when mask selects nothing")
	}
	if _, err := MeanPool([][]float32{{1}, {1}}, []bool{true}); err == nil {
		t.Error("expected error for mask length mismatch")
	}
	if _, err := MeanPool([][]float32{{1, 2}, {1}}, nil); err == nil {
		t.Error("expected error for ragged tokens")
	}
}

func TestL2Distance(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, math.Sqrt2},
		{[]float32{1, 0}, []float32{-1, 0}, 2},
	}
	for _, tc := range tests {
		got, err := L2Distance(tc.a, tc.b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("L2Distance(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := L2Distance([]float32{1}, []float32{1, 2}); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestCosine(t *testing.T) {
	got, err := Cosine([]float32{1, 0}, []float32{2, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine = %v, want 1", got)
	}
	if _, err := Cosine([]float32{0, 0}, []float32{1, 0}); err == nil {
		t.Error("expected error for zero vector")
	}
}
