package hillipop

import (
	"fmt"
	"math"
)

// memSource serves likelihood records from memory.
type memSource struct {
	ranges    map[string]map[Mode]RangeRecord
	spectra   map[string]map[Mode]SpectrumRecord
	invcov    map[string][]float64
	templates map[string]map[Mode]TemplateRecord
}

func newMemSource() *memSource {
	return &memSource{
		ranges:    make(map[string]map[Mode]RangeRecord),
		spectra:   make(map[string]map[Mode]SpectrumRecord),
		invcov:    make(map[string][]float64),
		templates: make(map[string]map[Mode]TemplateRecord),
	}
}

func (s *memSource) ReadMultipoleRanges(name string) (map[Mode]RangeRecord, error) {
	rec, ok := s.ranges[name]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", name)
	}
	return rec, nil
}

func (s *memSource) ReadCrossSpectrum(name string, record Mode) (SpectrumRecord, error) {
	rec, ok := s.spectra[name][record]
	if !ok {
		return SpectrumRecord{}, fmt.Errorf("no record %v in %s", record, name)
	}
	return rec, nil
}

func (s *memSource) ReadInverseCovariance(name string) ([]float64, error) {
	data, ok := s.invcov[name]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", name)
	}
	return data, nil
}

func (s *memSource) ReadTemplate(name string, mode Mode) (TemplateRecord, error) {
	rec, ok := s.templates[name][mode]
	if !ok {
		return TemplateRecord{}, fmt.Errorf("no record %v in %s", mode, name)
	}
	return rec, nil
}

// Three maps at 100, 100 and 143 GHz: map pairs (0,1) -> 100x100,
// (0,2) and (1,2) -> 100x143, no pair for 143x143.
var fixtureFreqs = []int{100, 100, 143}

const fixtureLMax = 6

// Per cross-frequency ranges, 11 multipoles per mode.
var fixtureRanges = RangeRecord{LMin: []int{2, 3, 2}, LMax: []int{6, 5, 4}}

func fixtureSettings(modes ModeSet) Settings {
	return Settings{
		NMap:            len(fixtureFreqs),
		Frequencies:     fixtureFreqs,
		Modes:           modes,
		MultipolesRange: "ranges",
		XSpectra:        "data",
		XSpectraErrors:  "data",
		CovMatrix:       "invfll",
		Foregrounds:     map[string]ParamValue{},
	}
}

// fixtureSource returns a source where every spectrum is constant, in K^2,
// with a 1 muK error, and the inverse covariance of each mode set is the
// identity in muK^-4.
func fixtureSource(dlK2 float64) *memSource {
	src := newMemSource()
	src.ranges["ranges"] = map[Mode]RangeRecord{TT: fixtureRanges, EE: fixtureRanges, BB: fixtureRanges, TE: fixtureRanges}

	ell := make([]int, fixtureLMax+1)
	dl := make([]float64, fixtureLMax+1)
	dlErr := make([]float64, fixtureLMax+1)
	for l := range ell {
		ell[l] = l
		dl[l] = dlK2
		dlErr[l] = 1e-12
	}
	for _, pair := range ListCross(len(fixtureFreqs)) {
		records := make(map[Mode]SpectrumRecord)
		for _, mode := range RangeRecords {
			records[mode] = SpectrumRecord{Ell: ell, Dl: dl, DlErr: dlErr}
		}
		src.spectra[CrossSpectrumName("data", pair.M1, pair.M2)] = records
	}

	for _, modes := range []ModeSet{NewModeSet(TT), NewModeSet(EE), NewModeSet(TT, EE), NewModeSet(TT, EE, TE, ET)} {
		n := 11 * len(modes.Modes())
		src.invcov[CovarianceName("invfll", modes)] = identity(n, invKelvin4ToMicro)
	}
	return src
}

func identity(n int, scale float64) []float64 {
	m := make([]float64, n*n)
	for i := 0; i < n; i++ {
		m[i*n+i] = scale
	}
	return m
}

// fixtureNuisance has no calibration offset and no foreground.
func fixtureNuisance() Nuisance {
	return NuisanceFromValues(map[string]float64{
		"Aplanck": 1, "c0": 0, "c1": 0, "c2": 0,
		"Aradio": 0, "Adusty": 0,
	}, len(fixtureFreqs))
}

// theoryFromDl converts constant Dl rows in K^2 back to Cl.
func theoryFromDl(lmax int, dlK2 ...float64) Theory {
	theory := make(Theory, len(dlK2))
	for row, v := range dlK2 {
		theory[row] = make([]float64, lmax+1)
		for l := 1; l <= lmax; l++ {
			theory[row][l] = v * 2 * math.Pi / float64(l) / float64(l+1)
		}
	}
	return theory
}
