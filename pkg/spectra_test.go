package hillipop

import (
	"errors"
	"math"
	"testing"
)

func TestLoadSpectrumStore(t *testing.T) {
	idx, _ := NewIndexMaps([]int{100, 143})
	src := newMemSource()
	records := make(map[Mode]SpectrumRecord)
	for _, mode := range RangeRecords {
		records[mode] = SpectrumRecord{
			Ell:   []int{2, 3, 5, 9},
			Dl:    []float64{1e-12, 2e-12, 3e-12, 4e-12},
			DlErr: []float64{1e-12, 0, 2e-12, 1e-12},
		}
	}
	src.spectra["cross_0_1"] = records

	store, err := LoadSpectrumStore(src, "cross", "cross", idx, 6)
	if err != nil {
		t.Fatalf("LoadSpectrumStore() error = %v", err)
	}
	if store.LMax() != 6 || store.NXSpec() != 1 {
		t.Errorf("LMax(), NXSpec() = %d, %d, want 6, 1", store.LMax(), store.NXSpec())
	}

	data := store.Data(ET, 0)
	wantData := []float64{0, 0, 1, 2, 0, 3, 0}
	weight := store.Weight(ET, 0)
	wantWeight := []float64{0, 0, 1, 0, 0, 0.25, 0}
	if len(data) != 7 || len(weight) != 7 {
		t.Fatalf("len(Data()), len(Weight()) = %d, %d, want 7", len(data), len(weight))
	}
	for l := range data {
		if math.Abs(data[l]-wantData[l]) > 1e-9 {
			t.Errorf("Data[%d] = %v, want %v", l, data[l], wantData[l])
		}
		if math.Abs(weight[l]-wantWeight[l]) > 1e-9 {
			t.Errorf("Weight[%d] = %v, want %v", l, weight[l], wantWeight[l])
		}
	}
}

func TestLoadSpectrumStoreErrors(t *testing.T) {
	idx, _ := NewIndexMaps([]int{100, 143})
	tests := []struct {
		name   string
		record SpectrumRecord
	}{
		{"empty record", SpectrumRecord{}},
		{"length mismatch", SpectrumRecord{Ell: []int{2, 3}, Dl: []float64{1}, DlErr: []float64{1, 1}}},
		{"negative multipole", SpectrumRecord{Ell: []int{-2, 3}, Dl: []float64{1, 1}, DlErr: []float64{1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newMemSource()
			src.spectra["cross_0_1"] = map[Mode]SpectrumRecord{TT: tt.record, EE: tt.record, BB: tt.record, TE: tt.record}
			_, err := LoadSpectrumStore(src, "cross", "cross", idx, 6)
			var dfe *DataFormatError
			if !errors.As(err, &dfe) {
				t.Fatalf("LoadSpectrumStore() error = %v, want DataFormatError", err)
			}
			if dfe.Filename != "cross_0_1" {
				t.Errorf("error file = %q, want cross_0_1", dfe.Filename)
			}
		})
	}
}

func TestNewSpectrumStore(t *testing.T) {
	dl := map[Mode][][]float64{}
	w8 := map[Mode][][]float64{}
	for _, mode := range SpectrumModes {
		dl[mode] = [][]float64{make([]float64, 4)}
		w8[mode] = [][]float64{make([]float64, 4)}
	}
	if _, err := NewSpectrumStore(3, dl, w8); err != nil {
		t.Fatalf("NewSpectrumStore() error = %v", err)
	}
	w8[EE] = [][]float64{make([]float64, 3)}
	if _, err := NewSpectrumStore(3, dl, w8); err == nil {
		t.Error("NewSpectrumStore() with short weights should fail")
	}
}

func TestCrossSpectrumName(t *testing.T) {
	if got := CrossSpectrumName("data/cross", 0, 2); got != "data/cross_0_2" {
		t.Errorf("CrossSpectrumName() = %q", got)
	}
}
