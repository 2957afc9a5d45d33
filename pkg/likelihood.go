package hillipop

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Theory holds Boltzmann Cl in K^2, rows TT, EE, BB, TE, indexed by
// multipole. A single row is read as TT.
type Theory [][]float64

// Residuals holds one residual Dl spectrum (muK^2) per cross-frequency, per
// active mode.
type Residuals map[Mode][][]float64

// Engine evaluates the high-l cross-spectra likelihood. Its state is built
// once and never modified, so it can be shared between goroutines.
type Engine struct {
	modes  ModeSet
	idx    *IndexMaps
	table  *MultipoleRangeTable
	store  *SpectrumStore
	invcov *InverseCovariance
	fgs    map[Mode][]ForegroundModel
	lmax   int
}

// NewEngine loads multipole ranges, cross-spectra, weights, inverse
// covariance and foreground templates described by settings.
func NewEngine(settings Settings, src Source) (*Engine, error) {
	idx, err := NewIndexMaps(settings.Frequencies)
	if err != nil {
		return nil, err
	}
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Maps: %d, frequencies: %v, cross-spectra: %d, cross-frequencies: %d",
			idx.NMap(), idx.Frequencies(), idx.NXSpec(), idx.NXFreq()), "engine")
		logger.Info(fmt.Sprintf("Active modes: %v", settings.Modes.Modes()), "engine")
		logger.Info(fmt.Sprintf("Multipole ranges: %s", settings.MultipolesRange), "engine")
	}

	records, err := src.ReadMultipoleRanges(settings.MultipolesRange)
	if err != nil {
		return nil, &DataFormatError{Filename: settings.MultipolesRange, Reason: "cannot read multipole ranges", Err: err}
	}
	table, err := NewMultipoleRangeTable(settings.MultipolesRange, records, idx)
	if err != nil {
		return nil, err
	}
	lmax := table.LMax()

	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Read data: %s (lmax %d)", settings.XSpectra, lmax), "engine")
	}
	store, err := LoadSpectrumStore(src, settings.XSpectra, settings.XSpectraErrors, idx, lmax)
	if err != nil {
		return nil, err
	}

	invcov, err := LoadInverseCovariance(src, settings.CovMatrix, settings.Modes, table)
	if err != nil {
		return nil, err
	}

	fgs, err := BuildForegrounds(settings, src, idx, lmax)
	if err != nil {
		return nil, err
	}

	return NewEngineFromParts(settings.Modes, idx, table, store, invcov, fgs)
}

// NewEngineFromParts assembles an engine from already built components and
// checks they are consistent with each other.
func NewEngineFromParts(modes ModeSet, idx *IndexMaps, table *MultipoleRangeTable, store *SpectrumStore,
	invcov *InverseCovariance, fgs map[Mode][]ForegroundModel) (*Engine, error) {
	if modes.Empty() {
		return nil, &ConfigurationError{Key: "modes", Reason: "no active mode"}
	}
	if store.LMax() != table.LMax() {
		return nil, fmt.Errorf("spectra lmax %d differs from multipole ranges lmax %d", store.LMax(), table.LMax())
	}
	if store.NXSpec() != idx.NXSpec() {
		return nil, fmt.Errorf("%d cross-spectra loaded for %d map pairs", store.NXSpec(), idx.NXSpec())
	}
	if n := table.NBins(modes); invcov.Dim() != n {
		return nil, &DataFormatError{Filename: "covariance",
			Reason: fmt.Sprintf("incoherent covariance matrix: dimension %d for %d retained multipoles", invcov.Dim(), n)}
	}
	if fgs == nil {
		fgs = make(map[Mode][]ForegroundModel)
	}
	for mode, models := range fgs {
		for _, fg := range models {
			if fg.Mode().RangeRecord() != mode.RangeRecord() {
				return nil, fmt.Errorf("foreground %s for mode %v registered under %v", fg.Name(), fg.Mode(), mode)
			}
		}
	}
	return &Engine{
		modes:  modes,
		idx:    idx,
		table:  table,
		store:  store,
		invcov: invcov,
		fgs:    fgs,
		lmax:   table.LMax(),
	}, nil
}

func (e *Engine) Modes() ModeSet        { return e.modes }
func (e *Engine) IndexMaps() *IndexMaps { return e.idx }
func (e *Engine) LMax() int             { return e.lmax }

func (e *Engine) MultipoleRanges() *MultipoleRangeTable {
	return e.table
}

// NBins is the length of the data vector entering the quadratic form.
func (e *Engine) NBins() int {
	return e.invcov.Dim()
}

// Foregrounds returns the foreground models of a mode, in evaluation order.
func (e *Engine) Foregrounds(mode Mode) []ForegroundModel {
	return append([]ForegroundModel(nil), e.fgs[mode]...)
}

// ParameterNames lists the nuisance parameters of the engine, Aplanck
// first. Aplanck is optional: NuisanceFromValues sets it to 1 when absent,
// so Validate only reports calibration offsets and foreground amplitudes.
func (e *Engine) ParameterNames() []string {
	names := []string{"Aplanck"}
	for m := 0; m < e.idx.NMap(); m++ {
		names = append(names, CalibrationName(m))
	}
	seen := make(map[string]bool)
	for _, mode := range e.modes.Modes() {
		for _, fg := range e.fgs[mode] {
			for _, name := range fg.Parameters() {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}

// Validate reports the nuisance parameters missing from p.
func (e *Engine) Validate(p Nuisance) error {
	var missing []string
	for m := 0; m < e.idx.NMap(); m++ {
		if _, ok := p.Calibration[m]; !ok {
			missing = append(missing, CalibrationName(m))
		}
	}
	for _, mode := range e.modes.Modes() {
		for _, fg := range e.fgs[mode] {
			for _, name := range fg.Parameters() {
				if _, ok := p.Foregrounds[name]; !ok {
					missing = append(missing, name)
				}
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing nuisance parameters: %s", strings.Join(compactStrings(missing), ", "))
	}
	return nil
}

func compactStrings(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// theoryDl converts the theory Cl (K^2) of every row needed by the active
// modes into Dl (muK^2) over [0, lmax].
func (e *Engine) theoryDl(theory Theory) (map[int][]float64, error) {
	dls := make(map[int][]float64)
	for _, mode := range e.modes.Modes() {
		row := mode.TheoryRow()
		if _, ok := dls[row]; ok {
			continue
		}
		if row >= len(theory) {
			return nil, &DataFormatError{Filename: "theory", Record: mode.String(),
				Reason: fmt.Sprintf("%d theory rows, mode %v needs row %d", len(theory), mode, row)}
		}
		cl := theory[row]
		if len(cl) < e.lmax+1 {
			return nil, &DataFormatError{Filename: "theory", Record: mode.String(),
				Reason: fmt.Sprintf("theory spectrum has %d multipoles, need %d", len(cl), e.lmax+1)}
		}
		dl := make([]float64, e.lmax+1)
		for l := range dl {
			dl[l] = cl[l] * float64(l) * float64(l+1) / 2 / math.Pi * kelvin2ToMicro
		}
		dls[row] = dl
	}
	return dls, nil
}

// ComputeResiduals returns, for every active mode, the weighted average per
// cross-frequency of data - cal * (theory + foregrounds).
func (e *Engine) ComputeResiduals(p Nuisance, theory Theory) (Residuals, error) {
	if err := e.Validate(p); err != nil {
		return nil, err
	}
	dlth, err := e.theoryDl(theory)
	if err != nil {
		return nil, err
	}

	pairs := e.idx.MapPairs()
	cal := make([]float64, len(pairs))
	for xs, pair := range pairs {
		cal[xs] = p.PairCalibration(pair.M1, pair.M2)
	}

	residuals := make(Residuals)
	for _, mode := range e.modes.Modes() {
		models := make([][]float64, len(pairs))
		for xs := range pairs {
			models[xs] = append([]float64(nil), dlth[mode.TheoryRow()]...)
		}
		for _, fg := range e.fgs[mode] {
			dls := fg.ComputeDl(p)
			if len(dls) != len(pairs) {
				return nil, &ForegroundShapeError{Model: fg.Name(), Mode: mode,
					Reason: fmt.Sprintf("%d spectra for %d map pairs", len(dls), len(pairs))}
			}
			for xs, dl := range dls {
				if len(dl) != e.lmax+1 {
					return nil, &ForegroundShapeError{Model: fg.Name(), Mode: mode,
						Reason: fmt.Sprintf("map pair %d: %d multipoles, expected %d", xs, len(dl), e.lmax+1)}
				}
				floats.Add(models[xs], dl)
			}
		}

		rspec := make([][]float64, len(pairs))
		weights := make([][]float64, len(pairs))
		for xs := range pairs {
			rspec[xs] = append([]float64(nil), e.store.Data(mode, xs)...)
			floats.AddScaled(rspec[xs], -cal[xs], models[xs])
			weights[xs] = e.store.Weight(mode, xs)
		}
		residuals[mode] = XSpectraToXFreq(rspec, weights, e.idx)
	}
	return residuals, nil
}

// XSpectraToXFreq averages cross-spectra sharing a cross-frequency,
// weighted per multipole. A multipole without weight averages to zero.
func XSpectraToXFreq(cl, weight [][]float64, idx *IndexMaps) [][]float64 {
	nell := 0
	if len(cl) > 0 {
		nell = len(cl[0])
	}
	xcl := make([][]float64, idx.NXFreq())
	xw8 := make([][]float64, idx.NXFreq())
	for xf := range xcl {
		xcl[xf] = make([]float64, nell)
		xw8[xf] = make([]float64, nell)
	}

	for xs, xf := range idx.XSpecToXFreq() {
		for l := 0; l < nell; l++ {
			xcl[xf][l] += weight[xs][l] * cl[xs][l]
		}
		floats.Add(xw8[xf], weight[xs])
	}

	for xf := range xcl {
		for l := range xcl[xf] {
			if xw8[xf][l] == 0 {
				xcl[xf][l] = 0
				continue
			}
			xcl[xf][l] /= xw8[xf][l]
		}
	}
	return xcl
}

// SelectSpectra cuts every residual to its multipole range and flattens
// modes, then cross-frequencies, then multipoles.
func (e *Engine) SelectSpectra(residuals Residuals) []float64 {
	x := make([]float64, 0, e.invcov.Dim())
	for _, mode := range e.modes.Modes() {
		for xf := 0; xf < e.idx.NXFreq(); xf++ {
			lmin, lmax := e.table.Range(mode, xf)
			x = append(x, residuals[mode][xf][lmin:lmax+1]...)
		}
	}
	return x
}

// ComputeLikelihood returns X^T C^-1 X for the residual vector X of the
// given nuisance parameters and theory: -2 ln L up to a constant.
func (e *Engine) ComputeLikelihood(p Nuisance, theory Theory) (float64, error) {
	residuals, err := e.ComputeResiduals(p, theory)
	if err != nil {
		return 0, err
	}
	return e.invcov.QuadraticForm(e.SelectSpectra(residuals))
}

// Survival is the probability of a chi2 at least as large as the given one
// for NBins degrees of freedom.
func (e *Engine) Survival(chi2 float64) float64 {
	dist := distuv.ChiSquared{K: float64(e.NBins())}
	return dist.Survival(chi2)
}
