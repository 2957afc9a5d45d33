package hillipop

import (
	"fmt"
	"math"
)

// ForegroundModel produces, for given nuisance parameters, one Dl
// contribution (muK^2) per map pair over multipoles [0, lmax].
type ForegroundModel interface {
	Name() string
	Mode() Mode
	Parameters() []string
	ComputeDl(p Nuisance) [][]float64
}

type ForegroundKind int

const (
	RadioPointSource ForegroundKind = iota
	DustyPointSource
	Dust
	SZ
	CIB
	KSZ
	SZxCIB
)

var foregroundKindStrings = []string{"radio", "dusty", "dust", "SZ", "CIB", "kSZ", "SZxCIB"}

func (k ForegroundKind) String() string {
	if k < RadioPointSource || k > SZxCIB {
		return "Unknown"
	}
	return foregroundKindStrings[k]
}

const (
	pointSourcePivotEll  = 3000
	pointSourcePivotFreq = 143.
	radioSpectralIndex   = -0.7
	dustySpectralIndex   = 3.5
)

// PointSource is a Poisson point-source term: flat Cl, normalized at
// l=3000 and 143 GHz, with a power-law frequency scaling.
type PointSource struct {
	kind  ForegroundKind
	param string
	shape [][]float64
}

func NewPointSource(kind ForegroundKind, idx *IndexMaps, lmax int) (*PointSource, error) {
	var beta float64
	var param string
	switch kind {
	case RadioPointSource:
		beta, param = radioSpectralIndex, "Aradio"
	case DustyPointSource:
		beta, param = dustySpectralIndex, "Adusty"
	default:
		return nil, fmt.Errorf("%v is not a point-source model", kind)
	}

	norm := float64(pointSourcePivotEll * (pointSourcePivotEll + 1))
	ps := &PointSource{kind: kind, param: param, shape: make([][]float64, idx.NXSpec())}
	for xs, pair := range idx.MapPairs() {
		nu1 := float64(idx.Frequency(pair.M1)) / pointSourcePivotFreq
		nu2 := float64(idx.Frequency(pair.M2)) / pointSourcePivotFreq
		sed := math.Pow(nu1*nu2, beta)
		dl := make([]float64, lmax+1)
		for l := range dl {
			dl[l] = float64(l*(l+1)) / norm * sed
		}
		ps.shape[xs] = dl
	}
	return ps, nil
}

func (ps *PointSource) Name() string         { return ps.kind.String() }
func (ps *PointSource) Mode() Mode           { return TT }
func (ps *PointSource) Parameters() []string { return []string{ps.param} }

func (ps *PointSource) ComputeDl(p Nuisance) [][]float64 {
	return scaleShapes(ps.shape, p.Amplitude(ps.param))
}

// Template is a foreground whose shape per cross-frequency is read from a
// template file and scaled by a single amplitude.
type Template struct {
	kind  ForegroundKind
	mode  Mode
	param string
	shape [][]float64
}

func templateParameter(kind ForegroundKind, mode Mode) string {
	switch kind {
	case Dust:
		switch mode {
		case EE:
			return "AdustPP"
		case TE, ET:
			return "AdustTP"
		default:
			return "AdustTT"
		}
	case SZ:
		return "Asz"
	case CIB:
		return "Acib"
	case KSZ:
		return "Aksz"
	case SZxCIB:
		return "Aszxcib"
	}
	return ""
}

func NewTemplate(kind ForegroundKind, mode Mode, src Source, name string, idx *IndexMaps, lmax int) (*Template, error) {
	param := templateParameter(kind, mode)
	if param == "" {
		return nil, fmt.Errorf("%v is not a template model", kind)
	}
	record := mode.RangeRecord()
	rec, err := src.ReadTemplate(name, record)
	if err != nil {
		return nil, &DataFormatError{Filename: name, Record: record.String(), Reason: fmt.Sprintf("cannot read %v template", kind), Err: err}
	}
	if len(rec.Dl) != idx.NXFreq() {
		return nil, &DataFormatError{Filename: name, Record: record.String(),
			Reason: fmt.Sprintf("%d template columns for %d cross-frequencies", len(rec.Dl), idx.NXFreq())}
	}

	perXFreq := make([][]float64, idx.NXFreq())
	for xf, column := range rec.Dl {
		perXFreq[xf], err = scatter(name, record, rec.Ell, column, lmax)
		if err != nil {
			return nil, err
		}
	}

	t := &Template{kind: kind, mode: mode, param: param, shape: make([][]float64, idx.NXSpec())}
	for xs, xf := range idx.XSpecToXFreq() {
		t.shape[xs] = perXFreq[xf]
	}
	return t, nil
}

func (t *Template) Name() string         { return t.kind.String() }
func (t *Template) Mode() Mode           { return t.mode }
func (t *Template) Parameters() []string { return []string{t.param} }

func (t *Template) ComputeDl(p Nuisance) [][]float64 {
	return scaleShapes(t.shape, p.Amplitude(t.param))
}

func scaleShapes(shape [][]float64, amplitude float64) [][]float64 {
	dl := make([][]float64, len(shape))
	for xs, s := range shape {
		dl[xs] = make([]float64, len(s))
		for l, v := range s {
			dl[xs][l] = amplitude * v
		}
	}
	return dl
}

var templateKinds = map[string]ForegroundKind{
	"Dust":   Dust,
	"SZ":     SZ,
	"CIB":    CIB,
	"kSZ":    KSZ,
	"SZxCIB": SZxCIB,
}

// BuildForegrounds selects the foreground models of every active mode from
// the configuration. TT always carries the point sources; the template
// models are added when their configuration block is present. Polarized
// modes only carry dust.
func BuildForegrounds(settings Settings, src Source, idx *IndexMaps, lmax int) (map[Mode][]ForegroundModel, error) {
	fgs := make(map[Mode][]ForegroundModel)
	for _, mode := range settings.Modes.Modes() {
		models := []ForegroundModel{}
		keys := []string{"Dust"}
		if mode == TT {
			for _, kind := range []ForegroundKind{RadioPointSource, DustyPointSource} {
				ps, err := NewPointSource(kind, idx, lmax)
				if err != nil {
					return nil, err
				}
				models = append(models, ps)
			}
			keys = ForegroundKeys
		}

		for _, key := range keys {
			block, ok := settings.Foregrounds[key]
			if !ok {
				continue
			}
			t, err := NewTemplate(templateKinds[key], mode, src, block[0], idx, lmax)
			if err != nil {
				return nil, err
			}
			models = append(models, t)
		}

		if verbosity > 0 {
			names := make([]string, len(models))
			for i, m := range models {
				names[i] = m.Name()
			}
			logger.Info(fmt.Sprintf("Foregrounds %v: %v", mode, names), "foregrounds")
		}
		fgs[mode] = models
	}
	return fgs, nil
}
