package hillipop

import (
	"errors"
	"fmt"
	"math"
)

const (
	// K^2 to muK^2
	kelvin2ToMicro = 1e12
)

// SpectrumStore holds the measured cross-spectra (Dl, muK^2) and their
// inverse-variance weights (muK^-4), per mode and map pair, over
// multipoles [0, lmax].
type SpectrumStore struct {
	lmax   int
	data   map[Mode][][]float64
	weight map[Mode][][]float64
}

// CrossSpectrumName is the logical name of the file holding the pair (m1, m2).
func CrossSpectrumName(base string, m1, m2 int) string {
	return fmt.Sprintf("%s_%d_%d", base, m1, m2)
}

// LoadSpectrumStore reads the spectra of every map pair from the dataBase
// files and their errors from the errBase files.
func LoadSpectrumStore(src Source, dataBase, errBase string, idx *IndexMaps, lmax int) (*SpectrumStore, error) {
	store := &SpectrumStore{
		lmax:   lmax,
		data:   make(map[Mode][][]float64),
		weight: make(map[Mode][][]float64),
	}
	for _, mode := range SpectrumModes {
		store.data[mode] = make([][]float64, idx.NXSpec())
		store.weight[mode] = make([][]float64, idx.NXSpec())
	}

	for xs, pair := range idx.MapPairs() {
		dataName := CrossSpectrumName(dataBase, pair.M1, pair.M2)
		errName := CrossSpectrumName(errBase, pair.M1, pair.M2)
		if verbosity > 1 {
			logger.Info(fmt.Sprintf("Reading cross-spectrum %d: %s", xs, dataName), "spectra")
		}
		for _, mode := range SpectrumModes {
			record := mode.RangeRecord()

			rec, err := src.ReadCrossSpectrum(dataName, record)
			if err != nil {
				return nil, wrapDataFormat(dataName, record, err)
			}
			dl, err := scatter(dataName, record, rec.Ell, rec.Dl, lmax)
			if err != nil {
				return nil, err
			}
			for l := range dl {
				dl[l] *= kelvin2ToMicro
			}
			store.data[mode][xs] = dl

			rec, err = src.ReadCrossSpectrum(errName, record)
			if err != nil {
				return nil, wrapDataFormat(errName, record, err)
			}
			sigma, err := scatter(errName, record, rec.Ell, rec.DlErr, lmax)
			if err != nil {
				return nil, err
			}
			store.weight[mode][xs] = inverseVariance(sigma)
		}
	}
	return store, nil
}

// NewSpectrumStore builds a store from spectra already in muK^2 and
// weights in muK^-4, indexed [mode][xspec][ell].
func NewSpectrumStore(lmax int, data, weight map[Mode][][]float64) (*SpectrumStore, error) {
	for _, mode := range SpectrumModes {
		if len(data[mode]) != len(weight[mode]) {
			return nil, fmt.Errorf("mode %v: %d spectra for %d weights", mode, len(data[mode]), len(weight[mode]))
		}
		for xs := range data[mode] {
			if len(data[mode][xs]) != lmax+1 || len(weight[mode][xs]) != lmax+1 {
				return nil, fmt.Errorf("mode %v, cross-spectrum %d: expected %d multipoles", mode, xs, lmax+1)
			}
		}
	}
	return &SpectrumStore{lmax: lmax, data: data, weight: weight}, nil
}

func wrapDataFormat(name string, record Mode, err error) error {
	var dfe *DataFormatError
	if errors.As(err, &dfe) {
		return err
	}
	return &DataFormatError{Filename: name, Record: record.String(), Reason: "cannot read cross-spectrum", Err: err}
}

// scatter places a sparse column into a dense array over [0, lmax].
// Multipoles above lmax are dropped.
func scatter(name string, record Mode, ell []int, values []float64, lmax int) ([]float64, error) {
	if len(ell) == 0 {
		return nil, &DataFormatError{Filename: name, Record: record.String(), Reason: "empty record"}
	}
	if len(ell) != len(values) {
		return nil, &DataFormatError{Filename: name, Record: record.String(),
			Reason: fmt.Sprintf("column lengths differ (%d multipoles, %d values)", len(ell), len(values))}
	}
	dense := make([]float64, lmax+1)
	for i, l := range ell {
		if l < 0 {
			return nil, &DataFormatError{Filename: name, Record: record.String(), Reason: fmt.Sprintf("negative multipole %d", l)}
		}
		if l > lmax {
			continue
		}
		dense[l] = values[i]
	}
	return dense, nil
}

// inverseVariance converts Dl errors in K^2 into 1/sigma^2 in muK^-4. A zero
// error means no measurement and gives a zero weight.
func inverseVariance(sigma []float64) []float64 {
	w := make([]float64, len(sigma))
	for l, s := range sigma {
		s *= kelvin2ToMicro
		if s == 0 {
			s = math.Inf(1)
		}
		w[l] = 1 / (s * s)
	}
	return w
}

func (s *SpectrumStore) LMax() int {
	return s.lmax
}

// Data returns the spectrum of map pair xs. The slice must not be modified.
func (s *SpectrumStore) Data(mode Mode, xs int) []float64 {
	return s.data[mode][xs]
}

// Weight returns the inverse-variance weights of map pair xs. The slice must
// not be modified.
func (s *SpectrumStore) Weight(mode Mode, xs int) []float64 {
	return s.weight[mode][xs]
}

func (s *SpectrumStore) NXSpec() int {
	return len(s.data[TT])
}
