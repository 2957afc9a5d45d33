package hillipop

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

const sampleTheory = `# ell TT EE BB TE
2 1e-10 1e-12 0 3e-11
3 2e-10 2e-12 0 4e-11

5 3e-10 3e-12 0 5e-11
`

func TestParseTheory(t *testing.T) {
	theory, err := ParseTheory(strings.NewReader(sampleTheory))
	if err != nil {
		t.Fatalf("ParseTheory() error = %v", err)
	}
	if len(theory) != 4 || len(theory[0]) != 6 {
		t.Fatalf("ParseTheory() shape = %d x %d, want 4 x 6", len(theory), len(theory[0]))
	}
	if !reflect.DeepEqual(theory[3], []float64{0, 0, 3e-11, 4e-11, 0, 5e-11}) {
		t.Errorf("TE = %v", theory[3])
	}
}

func TestParseTheoryErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "# nothing\n"},
		{"single column", "2\n3\n"},
		{"ragged", "2 1 1\n3 1\n"},
		{"fractional multipole", "2.5 1\n"},
		{"negative multipole", "-2 1\n"},
		{"not a number", "2 one\n"},
		{"multipole too large", "1e18 1\n"},
		{"infinite multipole", "+Inf 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTheory(strings.NewReader(tt.input)); err == nil {
				t.Errorf("ParseTheory(%q) should fail", tt.input)
			}
		})
	}
}

func TestReadTheoryXZ(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "cl.dat.xz")
	file, err := os.Create(fname)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	w, err := xz.NewWriter(file)
	if err != nil {
		t.Fatalf("xz.NewWriter() error = %v", err)
	}
	if _, err := w.Write([]byte(sampleTheory)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	file.Close()

	theory, err := ReadTheory(fname)
	if err != nil {
		t.Fatalf("ReadTheory() error = %v", err)
	}
	if theory[0][5] != 3e-10 {
		t.Errorf("TT(5) = %v, want 3e-10", theory[0][5])
	}

	_, err = ReadTheory(filepath.Join(t.TempDir(), "missing.dat"))
	var oerr *ErrOpenFile
	if !errors.As(err, &oerr) {
		t.Errorf("ReadTheory() error = %v, want ErrOpenFile", err)
	}
}
