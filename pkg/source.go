package hillipop

// RangeRecord holds the inclusive multipole range of each cross-frequency
// (or cross-spectrum) for one mode.
type RangeRecord struct {
	LMin []int
	LMax []int
}

// SpectrumRecord is a sparse cross-spectrum: multipoles, Dl and Dl error,
// in K^2.
type SpectrumRecord struct {
	Ell   []int
	Dl    []float64
	DlErr []float64
}

// TemplateRecord is a foreground template: one Dl column per
// cross-frequency over the listed multipoles, in muK^2.
type TemplateRecord struct {
	Ell []int
	Dl  [][]float64
}

// Source reads the logical records the likelihood is built from. Names are
// given without extension; the source decides how they map to files.
type Source interface {
	ReadMultipoleRanges(name string) (map[Mode]RangeRecord, error)
	ReadCrossSpectrum(name string, record Mode) (SpectrumRecord, error)
	ReadInverseCovariance(name string) ([]float64, error)
	ReadTemplate(name string, mode Mode) (TemplateRecord, error)
}
