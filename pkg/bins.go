package hillipop

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// Bins is a set of multipole bins with inclusive bounds.
type Bins struct {
	lmins []int
	lmaxs []int
	lmin  int
	lmax  int
}

// NewBins builds bins from parallel lower and upper bounds. Bins reaching
// below the quadrupole are dropped.
func NewBins(lmins, lmaxs []int) (*Bins, error) {
	if len(lmins) != len(lmaxs) {
		return nil, &ConfigurationError{Key: "bins", Reason: fmt.Sprintf("incoherent inputs: %d lower bounds, %d upper bounds", len(lmins), len(lmaxs))}
	}

	b := &Bins{}
	for i := range lmins {
		if lmaxs[i] >= 2 && lmins[i] >= 2 {
			b.lmins = append(b.lmins, lmins[i])
			b.lmaxs = append(b.lmaxs, lmaxs[i])
		}
	}
	if err := b.derive(); err != nil {
		return nil, err
	}
	return b, nil
}

// BinsFromDeltaL builds uniform bins of width deltaEll starting at lmin.
// The last incomplete bin is discarded.
func BinsFromDeltaL(lmin, lmax, deltaEll int) (*Bins, error) {
	if deltaEll <= 0 {
		return nil, &ConfigurationError{Key: "bins", Reason: fmt.Sprintf("invalid bin width %d", deltaEll)}
	}
	nbins := (lmax - lmin + 1) / deltaEll
	if nbins < 0 {
		nbins = 0
	}
	lmins := make([]int, nbins)
	lmaxs := make([]int, nbins)
	for i := range lmins {
		lmins[i] = lmin + i*deltaEll
		lmaxs[i] = lmins[i] + deltaEll - 1
	}
	return NewBins(lmins, lmaxs)
}

func (b *Bins) derive() error {
	for i := range b.lmins {
		if b.lmins[i] > b.lmaxs[i] {
			return &ConfigurationError{Key: "bins", Reason: fmt.Sprintf("incoherent inputs: bin %d has lmin %d > lmax %d", i, b.lmins[i], b.lmaxs[i])}
		}
	}
	if len(b.lmins) == 0 {
		return &ConfigurationError{Key: "bins", Reason: "no bin above the quadrupole"}
	}
	b.lmin = slices.Min(b.lmins)
	b.lmax = slices.Max(b.lmaxs)
	if b.lmin < 1 {
		return &ConfigurationError{Key: "bins", Reason: "input lmin is less than 1"}
	}
	if b.lmax < b.lmin {
		return &ConfigurationError{Key: "bins", Reason: "input lmax is less than lmin"}
	}
	return nil
}

func (b *Bins) NBins() int { return len(b.lmins) }
func (b *Bins) LMin() int  { return b.lmin }
func (b *Bins) LMax() int  { return b.lmax }

// Bounds returns copies of the lower and upper bounds.
func (b *Bins) Bounds() ([]int, []int) {
	return slices.Clone(b.lmins), slices.Clone(b.lmaxs)
}

func (b *Bins) Centers() []float64 {
	centers := make([]float64, len(b.lmins))
	for i := range centers {
		centers[i] = float64(b.lmins[i]+b.lmaxs[i]) / 2
	}
	return centers
}

func (b *Bins) Widths() []int {
	widths := make([]int, len(b.lmins))
	for i := range widths {
		widths[i] = b.lmaxs[i] - b.lmins[i] + 1
	}
	return widths
}

// CutBinning keeps the bins lying entirely inside [lmin, lmax].
func (b *Bins) CutBinning(lmin, lmax int) (*Bins, error) {
	cut := &Bins{}
	for i := range b.lmins {
		if b.lmins[i] >= lmin && b.lmaxs[i] <= lmax {
			cut.lmins = append(cut.lmins, b.lmins[i])
			cut.lmaxs = append(cut.lmaxs, b.lmaxs[i])
		}
	}
	if err := cut.derive(); err != nil {
		return nil, err
	}
	return cut, nil
}

func multipoleWeights(lmax int, dl bool) []float64 {
	w := make([]float64, lmax+1)
	for l := range w {
		if dl {
			w[l] = float64(l) * float64(l+1) / (2 * math.Pi)
		} else {
			w[l] = 1
		}
	}
	return w
}

// BinOperators returns the multipole-to-bin operator P (nbins x lmax+1) and
// the bin-to-multipole operator Q (lmax+1 x nbins). With dl the multipoles
// are weighted by l(l+1)/2pi. With cov, Q is also divided by the bin width.
func (b *Bins) BinOperators(dl, cov bool) (*mat.Dense, *mat.Dense) {
	w := multipoleWeights(b.lmax, dl)
	p := mat.NewDense(len(b.lmins), b.lmax+1, nil)
	q := mat.NewDense(b.lmax+1, len(b.lmins), nil)

	for bin := range b.lmins {
		a, z := b.lmins[bin], b.lmaxs[bin]
		width := float64(z - a + 1)
		for l := a; l <= z; l++ {
			p.Set(bin, l, w[l]/width)
			if cov {
				q.Set(l, bin, 1/w[l]/width)
			} else {
				q.Set(l, bin, 1/w[l])
			}
		}
	}
	return p, q
}

// BinSpectra averages a spectrum indexed by multipole into the bins.
func (b *Bins) BinSpectra(spectrum []float64, dl bool) []float64 {
	if len(spectrum) == 0 {
		return make([]float64, len(b.lmins))
	}
	in := mat.NewDense(1, len(spectrum), slices.Clone(spectrum))
	out := b.BinSpectraBatch(in, dl)
	return mat.Row(nil, 0, out)
}

// BinSpectraBatch bins every row of spectra independently.
func (b *Bins) BinSpectraBatch(spectra *mat.Dense, dl bool) *mat.Dense {
	rows, cols := spectra.Dims()
	minlmax := cols - 1
	if b.lmax < minlmax {
		minlmax = b.lmax
	}

	p, _ := b.BinOperators(dl, false)
	out := mat.NewDense(rows, len(b.lmins), nil)
	if minlmax < 0 {
		return out
	}
	lhs := spectra.Slice(0, rows, 0, minlmax+1)
	rhs := p.Slice(0, len(b.lmins), 0, minlmax+1).T()
	out.Mul(lhs, rhs)
	return out
}
