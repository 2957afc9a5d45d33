package hillipop

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInputFiles(t *testing.T) {
	s := Settings{
		NMap:            3,
		Modes:           NewModeSet(TT, EE),
		MultipolesRange: "binning",
		XSpectra:        "cross",
		XSpectraErrors:  "cross_err",
		CovMatrix:       "invfll",
		Foregrounds:     map[string]ParamValue{"SZ": {"sz"}, "Dust": {"dust", "1"}},
	}
	want := []string{
		"binning.h5",
		"cross_0_1.h5", "cross_err_0_1.h5",
		"cross_0_2.h5", "cross_err_0_2.h5",
		"cross_1_2.h5", "cross_err_1_2.h5",
		"invfll_TTEE.h5",
		"dust.h5", "sz.h5",
	}
	if got := s.InputFiles(".h5"); !reflect.DeepEqual(got, want) {
		t.Errorf("InputFiles() = %v, want %v", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		fname := filepath.Join(dir, name)
		if err := os.WriteFile(fname, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return fname
	}
	a := write("a", "first")
	b := write("b", "second")

	h1, err := Fingerprint([]string{a, b})
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("Fingerprint() = %q, want 64 hex digits", h1)
	}
	h2, _ := Fingerprint([]string{a, b})
	if h1 != h2 {
		t.Error("Fingerprint() is not deterministic")
	}
	if h3, _ := Fingerprint([]string{b, a}); h3 == h1 {
		t.Error("Fingerprint() ignores file order")
	}

	write("b", "changed")
	if h4, _ := Fingerprint([]string{a, b}); h4 == h1 {
		t.Error("Fingerprint() ignores file content")
	}

	_, err = Fingerprint([]string{filepath.Join(dir, "missing")})
	var oerr *ErrOpenFile
	if !errors.As(err, &oerr) {
		t.Errorf("Fingerprint() error = %v, want ErrOpenFile", err)
	}
}
