package hillipop

import (
	"fmt"
	"strings"
)

type Mode int

const (
	TT Mode = iota
	EE
	BB
	TE
	ET
	TB
	EB
)

// Modes that carry spectra in the cross-spectra files, in storage order.
var SpectrumModes = []Mode{TT, EE, BB, TE, ET}

// Modes that can take part in the likelihood, in covariance order.
var LikelihoodModes = []Mode{TT, EE, TE, ET}

// Range records stored in the multipole-range file, in file order.
var RangeRecords = []Mode{TT, EE, BB, TE}

var modeStrings = []string{"TT", "EE", "BB", "TE", "ET", "TB", "EB"}

func (m Mode) String() string {
	if m < TT || m > EB {
		return "Unknown"
	}
	return modeStrings[m]
}

func ParseMode(s string) (Mode, error) {
	for i, v := range modeStrings {
		if v == strings.ToUpper(s) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("invalid mode: %s", s)
}

// RangeRecord returns the record holding the multipole ranges of the mode.
// ET spectra are stored and cut like TE.
func (m Mode) RangeRecord() Mode {
	if m == ET {
		return TE
	}
	return m
}

// TheoryRow returns the row of a Boltzmann spectrum array (TT, EE, BB, TE)
// used as theory for the mode.
func (m Mode) TheoryRow() int {
	return int(m.RangeRecord())
}

// ModeSet is the set of modes active in the likelihood.
type ModeSet uint8

func NewModeSet(modes ...Mode) ModeSet {
	var s ModeSet
	for _, m := range modes {
		s = s.With(m)
	}
	return s
}

func (s ModeSet) With(m Mode) ModeSet {
	return s | 1<<uint(m)
}

func (s ModeSet) Has(m Mode) bool {
	return s&(1<<uint(m)) != 0
}

func (s ModeSet) Empty() bool {
	return s == 0
}

// Modes lists the active modes in canonical order.
func (s ModeSet) Modes() []Mode {
	modes := make([]Mode, 0, len(LikelihoodModes))
	for _, m := range LikelihoodModes {
		if s.Has(m) {
			modes = append(modes, m)
		}
	}
	return modes
}

// CovarianceSuffix is appended to the covariance file name, e.g. "_TTEE".
func (s ModeSet) CovarianceSuffix() string {
	return "_" + s.String()
}

func (s ModeSet) String() string {
	var b strings.Builder
	for _, m := range s.Modes() {
		b.WriteString(m.String())
	}
	return b.String()
}
