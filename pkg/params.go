package hillipop

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ParamValue is the value of a parameter file entry. Multi-token values are
// split on whitespace.
type ParamValue []string

func (v ParamValue) String() string {
	return strings.Join(v, " ")
}

func (v ParamValue) IsList() bool {
	return len(v) > 1
}

// ParameterFile holds the raw key=value entries of a likelihood parameter
// file.
type ParameterFile map[string]ParamValue

func ReadParameterFile(filename string) (ParameterFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()
	return ParseParameters(file)
}

func ParseParameters(r io.Reader) (ParameterFile, error) {
	pars := make(ParameterFile)
	scanner := bufio.NewScanner(r)
	nline := 0
	for scanner.Scan() {
		nline++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, found := strings.Cut(line, "=")
		if !found {
			return nil, &ConfigurationError{Key: fmt.Sprintf("line %d", nline), Reason: fmt.Sprintf("missing '=' in %q", line)}
		}
		if strings.Contains(value, "=") {
			return nil, &ConfigurationError{Key: fmt.Sprintf("line %d", nline), Reason: fmt.Sprintf("more than one '=' in %q", line)}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &ConfigurationError{Key: fmt.Sprintf("line %d", nline), Reason: "empty parameter name"}
		}
		pars[name] = ParamValue(strings.Fields(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigurationError{Reason: "cannot read parameter file", Err: err}
	}
	return pars, nil
}

func (p ParameterFile) Has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p ParameterFile) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || len(v) == 0 {
		return "", &ConfigurationError{Key: key, Reason: "missing value"}
	}
	if v.IsList() {
		return "", &ConfigurationError{Key: key, Reason: fmt.Sprintf("expected a single value, got %q", v.String())}
	}
	return v[0], nil
}

func (p ParameterFile) Int(key string) (int, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Reason: "not an integer", Err: err}
	}
	return i, nil
}

// Foreground configuration blocks, in the order the models are added.
var ForegroundKeys = []string{"Dust", "SZ", "CIB", "kSZ", "SZxCIB"}

// Settings is the typed content of a parameter file.
type Settings struct {
	NMap            int
	Frequencies     []int
	Modes           ModeSet
	MultipolesRange string
	XSpectra        string
	XSpectraErrors  string
	CovMatrix       string
	Foregrounds     map[string]ParamValue
}

func NewSettings(pars ParameterFile) (Settings, error) {
	var s Settings
	var err error

	s.NMap, err = pars.Int("map")
	if err != nil {
		return s, err
	}
	if s.NMap < 2 {
		return s, &ConfigurationError{Key: "map", Reason: fmt.Sprintf("at least two maps are needed, got %d", s.NMap)}
	}

	s.Frequencies = make([]int, s.NMap)
	for m := 0; m < s.NMap; m++ {
		s.Frequencies[m], err = pars.Int(fmt.Sprintf("freq%d", m))
		if err != nil {
			return s, err
		}
	}

	for _, mode := range LikelihoodModes {
		if !pars.Has(mode.String()) {
			continue
		}
		flag, err := pars.Int(mode.String())
		if err != nil {
			return s, err
		}
		switch flag {
		case 0:
		case 1:
			s.Modes = s.Modes.With(mode)
		default:
			return s, &ConfigurationError{Key: mode.String(), Reason: fmt.Sprintf("mode flag must be 0 or 1, got %d", flag)}
		}
	}
	if s.Modes.Empty() {
		return s, &ConfigurationError{Key: "TT", Reason: "no active mode"}
	}

	paths := []struct {
		key string
		dst *string
	}{
		{"MultipolesRange", &s.MultipolesRange},
		{"XSpectra", &s.XSpectra},
		{"XSpectraErrors", &s.XSpectraErrors},
		{"CovMatrix", &s.CovMatrix},
	}
	for _, p := range paths {
		*p.dst, err = pars.String(p.key)
		if err != nil {
			return s, err
		}
	}

	s.Foregrounds = make(map[string]ParamValue)
	for _, key := range ForegroundKeys {
		if v, ok := pars[key]; ok {
			if len(v) == 0 {
				return s, &ConfigurationError{Key: key, Reason: "empty foreground block"}
			}
			s.Foregrounds[key] = v
		}
	}
	return s, nil
}

// Nuisance holds the nuisance parameters of one evaluation: the global
// calibration, one calibration offset per map and the foreground amplitudes.
type Nuisance struct {
	Aplanck     float64
	Calibration map[int]float64
	Foregrounds map[string]float64
}

// NuisanceFromValues splits a flat parameter dictionary ("Aplanck", "c0",
// "c1", ..., foreground amplitudes) into a Nuisance. A missing Aplanck is 1.
func NuisanceFromValues(values map[string]float64, nmap int) Nuisance {
	p := Nuisance{
		Aplanck:     1,
		Calibration: make(map[int]float64),
		Foregrounds: make(map[string]float64),
	}
	for name, v := range values {
		if name == "Aplanck" {
			p.Aplanck = v
			continue
		}
		if strings.HasPrefix(name, "c") {
			if m, err := strconv.Atoi(name[1:]); err == nil && m >= 0 && m < nmap {
				p.Calibration[m] = v
				continue
			}
		}
		p.Foregrounds[name] = v
	}
	return p
}

// Values flattens the nuisance parameters back into a dictionary.
func (p Nuisance) Values() map[string]float64 {
	values := map[string]float64{"Aplanck": p.Aplanck}
	for m, v := range p.Calibration {
		values[CalibrationName(m)] = v
	}
	for name, v := range p.Foregrounds {
		values[name] = v
	}
	return values
}

// Amplitude returns a foreground amplitude, zero when unset.
func (p Nuisance) Amplitude(name string) float64 {
	return p.Foregrounds[name]
}

// PairCalibration is Aplanck^2 (1+c_m1) (1+c_m2).
func (p Nuisance) PairCalibration(m1, m2 int) float64 {
	return p.Aplanck * p.Aplanck * (1 + p.Calibration[m1]) * (1 + p.Calibration[m2])
}

func CalibrationName(m int) string {
	return fmt.Sprintf("c%d", m)
}

func sortedKeys(values map[string]ParamValue) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
