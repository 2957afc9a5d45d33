package hillipop

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

type xzFile struct {
	io.Reader
	file *os.File
}

func (f *xzFile) Close() error {
	return f.file.Close()
}

// OpenInput opens a text input, decompressing it when its name ends in
// ".xz".
func OpenInput(filename string) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	if !strings.HasSuffix(filename, ".xz") {
		return file, nil
	}
	r, err := xz.NewReader(bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, &ErrOpenFile{Filename: filename, Err: fmt.Errorf("invalid xz stream: %w", err)}
	}
	return &xzFile{Reader: r, file: file}, nil
}

// Largest multipole accepted in a theory file.
const maxTheoryEll = 100000

func ReadTheory(filename string) (Theory, error) {
	r, err := OpenInput(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	theory, err := ParseTheory(r)
	if err != nil {
		return nil, &DataFormatError{Filename: filename, Reason: "cannot read theory spectra", Err: err}
	}
	return theory, nil
}

// ParseTheory reads whitespace separated columns "ell TT [EE BB TE]" with Cl
// in K^2. Lines starting with '#' are comments. Multipoles not listed are
// zero.
func ParseTheory(r io.Reader) (Theory, error) {
	var ells []int
	var rows [][]float64
	ncols := 0

	scanner := bufio.NewScanner(r)
	nline := 0
	for scanner.Scan() {
		nline++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if ncols == 0 {
			ncols = len(fields)
			if ncols < 2 || ncols > 5 {
				return nil, fmt.Errorf("line %d: %d columns, expected ell and 1 to 4 spectra", nline, ncols)
			}
		}
		if len(fields) != ncols {
			return nil, fmt.Errorf("line %d: %d columns, expected %d", nline, len(fields), ncols)
		}

		ell, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || ell < 0 || ell > maxTheoryEll || ell != math.Trunc(ell) {
			return nil, fmt.Errorf("line %d: invalid multipole %q", nline, fields[0])
		}
		row := make([]float64, ncols-1)
		for i, f := range fields[1:] {
			row[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", nline, err)
			}
		}
		ells = append(ells, int(ell))
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(ells) == 0 {
		return nil, fmt.Errorf("no spectrum found")
	}

	lmax := 0
	for _, l := range ells {
		lmax = max(lmax, l)
	}
	theory := make(Theory, ncols-1)
	for i := range theory {
		theory[i] = make([]float64, lmax+1)
	}
	for n, l := range ells {
		for i, v := range rows[n] {
			theory[i][l] = v
		}
	}
	return theory, nil
}
