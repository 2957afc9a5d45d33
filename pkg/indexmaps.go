package hillipop

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// MapPair is a cross-spectrum between maps M1 < M2.
type MapPair struct {
	M1 int
	M2 int
}

// FreqPair is a cross-frequency F1 <= F2, in GHz.
type FreqPair struct {
	F1 int
	F2 int
}

// IndexMaps holds the bijections between map pairs, cross-frequencies and
// their canonical orderings. It is immutable once built.
type IndexMaps struct {
	freqs       []int
	uniqueFreqs []int
	xspec2map   []MapPair
	xfreqs      []FreqPair
	xspec2xfreq []int
	xfreq2xspec [][]int
}

// ListCross enumerates the map pairs of nmap maps in canonical order.
func ListCross(nmap int) []MapPair {
	pairs := make([]MapPair, 0, nmap*(nmap-1)/2)
	for m1 := 0; m1 < nmap; m1++ {
		for m2 := m1 + 1; m2 < nmap; m2++ {
			pairs = append(pairs, MapPair{M1: m1, M2: m2})
		}
	}
	return pairs
}

func NewIndexMaps(freqs []int) (*IndexMaps, error) {
	if len(freqs) < 2 {
		return nil, &ConfigurationError{Key: "map", Reason: fmt.Sprintf("at least two maps are needed, got %d", len(freqs))}
	}
	for m, f := range freqs {
		if f <= 0 {
			return nil, &ConfigurationError{Key: fmt.Sprintf("freq%d", m), Reason: fmt.Sprintf("invalid frequency %d", f)}
		}
	}

	idx := &IndexMaps{freqs: slices.Clone(freqs)}

	unique := slices.Clone(freqs)
	slices.Sort(unique)
	idx.uniqueFreqs = slices.Compact(unique)

	nfreq := len(idx.uniqueFreqs)
	for f1 := 0; f1 < nfreq; f1++ {
		for f2 := f1; f2 < nfreq; f2++ {
			idx.xfreqs = append(idx.xfreqs, FreqPair{F1: idx.uniqueFreqs[f1], F2: idx.uniqueFreqs[f2]})
		}
	}

	idx.xspec2map = ListCross(len(freqs))
	idx.xfreq2xspec = make([][]int, len(idx.xfreqs))
	idx.xspec2xfreq = make([]int, len(idx.xspec2map))
	for xs, pair := range idx.xspec2map {
		xf := idx.CrossFrequency(pair.M1, pair.M2)
		idx.xspec2xfreq[xs] = xf
		idx.xfreq2xspec[xf] = append(idx.xfreq2xspec[xf], xs)
	}
	return idx, nil
}

func (idx *IndexMaps) NMap() int   { return len(idx.freqs) }
func (idx *IndexMaps) NFreq() int  { return len(idx.uniqueFreqs) }
func (idx *IndexMaps) NXSpec() int { return len(idx.xspec2map) }
func (idx *IndexMaps) NXFreq() int { return len(idx.xfreqs) }

// Frequency returns the band of map m.
func (idx *IndexMaps) Frequency(m int) int {
	return idx.freqs[m]
}

// Frequencies returns the unique bands in ascending order.
func (idx *IndexMaps) Frequencies() []int {
	return slices.Clone(idx.uniqueFreqs)
}

func (idx *IndexMaps) MapPairs() []MapPair {
	return slices.Clone(idx.xspec2map)
}

func (idx *IndexMaps) CrossFrequencies() []FreqPair {
	return slices.Clone(idx.xfreqs)
}

// CrossFrequency returns the canonical cross-frequency index of the
// frequencies of maps m1 and m2.
func (idx *IndexMaps) CrossFrequency(m1, m2 int) int {
	f1 := slices.Index(idx.uniqueFreqs, idx.freqs[m1])
	f2 := slices.Index(idx.uniqueFreqs, idx.freqs[m2])
	if f1 > f2 {
		f1, f2 = f2, f1
	}
	// rows of the upper triangle before f1, then offset inside row f1
	nfreq := len(idx.uniqueFreqs)
	return f1*nfreq - f1*(f1-1)/2 + (f2 - f1)
}

// XSpecToXFreq returns the cross-frequency of every map pair, in map pair
// canonical order.
func (idx *IndexMaps) XSpecToXFreq() []int {
	return slices.Clone(idx.xspec2xfreq)
}

// XSpecIndex returns the canonical index of the map pair (m1, m2).
func (idx *IndexMaps) XSpecIndex(m1, m2 int) int {
	if m1 > m2 {
		m1, m2 = m2, m1
	}
	nmap := len(idx.freqs)
	return m1*nmap - m1*(m1+1)/2 + (m2 - m1 - 1)
}

// PairsOf returns the map pairs contributing to cross-frequency xf. The
// result may be empty.
func (idx *IndexMaps) PairsOf(xf int) []int {
	return slices.Clone(idx.xfreq2xspec[xf])
}
