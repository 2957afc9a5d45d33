package hillipop

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNewBins(t *testing.T) {
	b, err := NewBins([]int{0, 2, 10, 20}, []int{1, 9, 19, 29})
	if err != nil {
		t.Fatalf("NewBins() error = %v", err)
	}
	if b.NBins() != 3 {
		t.Errorf("NBins() = %d, want 3", b.NBins())
	}
	if b.LMin() != 2 || b.LMax() != 29 {
		t.Errorf("LMin(), LMax() = %d, %d, want 2, 29", b.LMin(), b.LMax())
	}
	if got := b.Widths(); !reflect.DeepEqual(got, []int{8, 10, 10}) {
		t.Errorf("Widths() = %v, want [8 10 10]", got)
	}
	if got := b.Centers(); !reflect.DeepEqual(got, []float64{5.5, 14.5, 24.5}) {
		t.Errorf("Centers() = %v, want [5.5 14.5 24.5]", got)
	}
}

func TestNewBinsErrors(t *testing.T) {
	tests := []struct {
		name  string
		lmins []int
		lmaxs []int
	}{
		{"length mismatch", []int{2, 10}, []int{9}},
		{"only low multipoles", []int{0, 1}, []int{1, 1}},
		{"inverted bin", []int{10}, []int{5}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBins(tt.lmins, tt.lmaxs)
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Errorf("NewBins() error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestBinsFromDeltaL(t *testing.T) {
	b, err := BinsFromDeltaL(2, 31, 10)
	if err != nil {
		t.Fatalf("BinsFromDeltaL() error = %v", err)
	}
	lmins, lmaxs := b.Bounds()
	if !reflect.DeepEqual(lmins, []int{2, 12, 22}) || !reflect.DeepEqual(lmaxs, []int{11, 21, 31}) {
		t.Errorf("Bounds() = %v, %v", lmins, lmaxs)
	}

	if _, err := BinsFromDeltaL(2, 31, 0); err == nil {
		t.Error("BinsFromDeltaL() with zero width should fail")
	}
}

func TestCutBinning(t *testing.T) {
	b, _ := BinsFromDeltaL(2, 41, 10)
	cut, err := b.CutBinning(10, 35)
	if err != nil {
		t.Fatalf("CutBinning() error = %v", err)
	}
	lmins, lmaxs := cut.Bounds()
	if !reflect.DeepEqual(lmins, []int{12, 22}) || !reflect.DeepEqual(lmaxs, []int{21, 31}) {
		t.Errorf("CutBinning() bounds = %v, %v", lmins, lmaxs)
	}
	if b.NBins() != 4 {
		t.Errorf("CutBinning() modified the original bins")
	}

	if _, err := b.CutBinning(100, 200); err == nil {
		t.Error("CutBinning() outside the bins should fail")
	}
}

func TestBinSpectraConstant(t *testing.T) {
	b, _ := NewBins([]int{2, 5, 30}, []int{4, 29, 30})
	spectrum := make([]float64, 41)
	for l := range spectrum {
		spectrum[l] = 3.5
	}

	got := b.BinSpectra(spectrum, false)
	for i, v := range got {
		if math.Abs(v-3.5) > 1e-12 {
			t.Errorf("bin %d = %v, want 3.5", i, v)
		}
	}
}

func TestBinSpectraDl(t *testing.T) {
	b, _ := NewBins([]int{2}, []int{3})
	spectrum := []float64{0, 0, 1, 1}

	got := b.BinSpectra(spectrum, true)
	want := (6 + 12) / (2 * math.Pi) / 2
	if math.Abs(got[0]-want) > 1e-12 {
		t.Errorf("BinSpectra(dl) = %v, want %v", got[0], want)
	}
}

func TestBinSpectraShortSpectrum(t *testing.T) {
	b, _ := NewBins([]int{2, 10}, []int{9, 19})
	spectrum := make([]float64, 10)
	for l := range spectrum {
		spectrum[l] = 1
	}
	got := b.BinSpectra(spectrum, false)
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("BinSpectra() = %v, want [1 0]", got)
	}

	if got := b.BinSpectra(nil, false); len(got) != 2 {
		t.Errorf("BinSpectra(nil) = %v, want 2 zeros", got)
	}
}

func TestBinSpectraBatch(t *testing.T) {
	b, _ := NewBins([]int{2, 4}, []int{3, 5})
	spectra := mat.NewDense(2, 6, []float64{
		0, 0, 1, 3, 5, 7,
		0, 0, 2, 2, 2, 2,
	})
	got := b.BinSpectraBatch(spectra, false)
	want := mat.NewDense(2, 2, []float64{2, 6, 2, 2})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("BinSpectraBatch() = %v, want %v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestBinOperators(t *testing.T) {
	b, _ := NewBins([]int{2, 5}, []int{4, 9})

	for _, dl := range []bool{false, true} {
		p, q := b.BinOperators(dl, false)
		var pq mat.Dense
		pq.Mul(p, q)
		n, _ := pq.Dims()
		for i := 0; i < n; i++ {
			row := mat.Row(nil, i, &pq)
			want := make([]float64, n)
			want[i] = 1
			if !floats.EqualApprox(row, want, 1e-12) {
				t.Errorf("dl=%v: (PQ)[%d] = %v, want %v", dl, i, row, want)
			}
		}
	}

	_, qcov := b.BinOperators(false, true)
	if got := qcov.At(6, 1); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("Q_cov[6][1] = %v, want 0.2", got)
	}
}
