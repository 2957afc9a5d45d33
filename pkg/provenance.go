package hillipop

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// InputFiles lists the files an engine built from these settings reads,
// with the given extension appended to every logical name.
func (s Settings) InputFiles(ext string) []string {
	files := []string{s.MultipolesRange + ext}
	for _, pair := range ListCross(s.NMap) {
		files = append(files, CrossSpectrumName(s.XSpectra, pair.M1, pair.M2)+ext)
		if s.XSpectraErrors != s.XSpectra {
			files = append(files, CrossSpectrumName(s.XSpectraErrors, pair.M1, pair.M2)+ext)
		}
	}
	files = append(files, CovarianceName(s.CovMatrix, s.Modes)+ext)
	for _, key := range sortedKeys(s.Foregrounds) {
		files = append(files, s.Foregrounds[key][0]+ext)
	}
	return files
}

// Fingerprint returns a BLAKE3 digest over the base names and contents of
// the given files, in order.
func Fingerprint(files []string) (string, error) {
	h := blake3.New()
	for _, fname := range files {
		f, err := os.Open(fname)
		if err != nil {
			return "", &ErrOpenFile{Filename: fname, Err: err}
		}
		fmt.Fprintf(h, "%s\x00", filepath.Base(fname))
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("error hashing %q: %w", fname, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
