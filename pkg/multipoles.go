package hillipop

import (
	"fmt"
)

// MultipoleRangeTable holds the (lmin, lmax) kept in the likelihood for
// each mode and cross-frequency.
type MultipoleRangeTable struct {
	lmins map[Mode][]int
	lmaxs map[Mode][]int
	lmax  int
}

// NewMultipoleRangeTable resolves the range records of the TT, EE, BB and
// TE records against the cross-frequencies of idx. A record is either
// indexed by cross-frequency or by cross-spectrum; in the latter case a
// cross-frequency takes the range of its first map pair. When both counts
// are equal (e.g. maps at 100, 143, 217 and 217 GHz) records are read per
// cross-frequency.
func NewMultipoleRangeTable(name string, records map[Mode]RangeRecord, idx *IndexMaps) (*MultipoleRangeTable, error) {
	table := &MultipoleRangeTable{
		lmins: make(map[Mode][]int),
		lmaxs: make(map[Mode][]int),
		lmax:  -1,
	}

	for _, mode := range RangeRecords {
		rec, ok := records[mode]
		if !ok {
			return nil, &DataFormatError{Filename: name, Record: mode.String(), Reason: "missing multipole range record"}
		}
		if len(rec.LMin) != len(rec.LMax) {
			return nil, &DataFormatError{Filename: name, Record: mode.String(),
				Reason: fmt.Sprintf("LMIN and LMAX lengths differ (%d, %d)", len(rec.LMin), len(rec.LMax))}
		}
		for i := range rec.LMin {
			if rec.LMin[i] < 0 || rec.LMin[i] > rec.LMax[i] {
				return nil, &DataFormatError{Filename: name, Record: mode.String(),
					Reason: fmt.Sprintf("invalid range [%d, %d] at entry %d", rec.LMin[i], rec.LMax[i], i)}
			}
			if rec.LMax[i] > table.lmax {
				table.lmax = rec.LMax[i]
			}
		}

		lmins, lmaxs, err := resolveRanges(rec, idx)
		if err != nil {
			return nil, &DataFormatError{Filename: name, Record: mode.String(), Reason: "cannot resolve ranges", Err: err}
		}
		table.lmins[mode] = lmins
		table.lmaxs[mode] = lmaxs
	}

	if table.lmax < 0 {
		return nil, &DataFormatError{Filename: name, Reason: "empty multipole range records"}
	}
	return table, nil
}

func resolveRanges(rec RangeRecord, idx *IndexMaps) ([]int, []int, error) {
	nxfreq := idx.NXFreq()
	switch len(rec.LMin) {
	case nxfreq:
		if nxfreq == idx.NXSpec() && verbosity > 0 {
			logger.Info(fmt.Sprintf("%d cross-frequencies and %d cross-spectra, ranges read per cross-frequency",
				nxfreq, idx.NXSpec()), "multipoles")
		}
		return append([]int(nil), rec.LMin...), append([]int(nil), rec.LMax...), nil
	case idx.NXSpec():
		lmins := make([]int, nxfreq)
		lmaxs := make([]int, nxfreq)
		for xf := 0; xf < nxfreq; xf++ {
			pairs := idx.PairsOf(xf)
			if len(pairs) == 0 {
				return nil, nil, fmt.Errorf("cross-frequency %v has no cross-spectrum", idx.xfreqs[xf])
			}
			lmins[xf] = rec.LMin[pairs[0]]
			lmaxs[xf] = rec.LMax[pairs[0]]
		}
		return lmins, lmaxs, nil
	default:
		return nil, nil, fmt.Errorf("%d entries, expected %d cross-frequencies or %d cross-spectra",
			len(rec.LMin), nxfreq, idx.NXSpec())
	}
}

// Range returns the inclusive multipole range of cross-frequency xf.
func (t *MultipoleRangeTable) Range(mode Mode, xf int) (int, int) {
	rec := mode.RangeRecord()
	return t.lmins[rec][xf], t.lmaxs[rec][xf]
}

// LMax is the largest multipole of all records. Every multipole-indexed
// array is sized LMax()+1.
func (t *MultipoleRangeTable) LMax() int {
	return t.lmax
}

// NBins counts the multipoles retained for the active modes.
func (t *MultipoleRangeTable) NBins(modes ModeSet) int {
	n := 0
	for _, mode := range modes.Modes() {
		rec := mode.RangeRecord()
		for xf := range t.lmins[rec] {
			n += t.lmaxs[rec][xf] - t.lmins[rec][xf] + 1
		}
	}
	return n
}

// Offsets returns, for each active mode, the position in the flattened data
// vector where each cross-frequency block starts.
func (t *MultipoleRangeTable) Offsets(modes ModeSet) map[Mode][]int {
	offsets := make(map[Mode][]int)
	pos := 0
	for _, mode := range modes.Modes() {
		rec := mode.RangeRecord()
		offsets[mode] = make([]int, len(t.lmins[rec]))
		for xf := range t.lmins[rec] {
			offsets[mode][xf] = pos
			pos += t.lmaxs[rec][xf] - t.lmins[rec][xf] + 1
		}
	}
	return offsets
}

// Records returns the per cross-frequency ranges of the TT, EE, BB and TE
// records.
func (t *MultipoleRangeTable) Records() map[Mode]RangeRecord {
	records := make(map[Mode]RangeRecord)
	for _, mode := range RangeRecords {
		records[mode] = RangeRecord{
			LMin: append([]int(nil), t.lmins[mode]...),
			LMax: append([]int(nil), t.lmaxs[mode]...),
		}
	}
	return records
}
