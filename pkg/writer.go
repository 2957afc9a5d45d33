package hillipop

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer creates likelihood input files in the layout read by HDF5Source.
type Writer struct {
	File     *hdf5.File
	Filename string
	groups   []*hdf5.Group
}

func createFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func writeColumn[T any](loc *hdf5.CommonFG, name string, data []T) error {
	var zero T
	dtype, err := hdf5.NewDatatypeFromValue(zero)
	if err != nil {
		return fmt.Errorf("error creating datatype for %q: %w", name, err)
	}
	return writeShaped(loc, name, dtype, data, []uint{uint(len(data))})
}

func writeShaped[T any](loc *hdf5.CommonFG, name string, dtype *hdf5.Datatype, data []T, dims []uint) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("error creating dataspace for %q: %w", name, err)
	}
	defer space.Close()

	dset, err := loc.CreateDataset(name, dtype, space)
	if err != nil {
		return fmt.Errorf("error creating dataset %q: %w", name, err)
	}
	defer dset.Close()

	// HDF5 cannot take the address of an empty slice
	if len(data) == 0 {
		return nil
	}
	if err := dset.Write(&data); err != nil {
		return fmt.Errorf("error writing dataset %q: %w", name, err)
	}
	return nil
}

func NewWriter(filename string) (*Writer, error) {
	f, err := createFile(filename)
	if err != nil {
		return nil, err
	}
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")
	}
	return &Writer{File: f, Filename: filename}, nil
}

func (w *Writer) group(mode Mode) (*hdf5.Group, error) {
	g, err := createGroup(w.File, mode.String())
	if err != nil {
		return nil, err
	}
	w.groups = append(w.groups, g)
	return g, nil
}

func int64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

// WriteRanges writes one LMIN/LMAX record per mode.
func (w *Writer) WriteRanges(modes []Mode, records map[Mode]RangeRecord) error {
	for _, mode := range modes {
		rec := records[mode]
		if len(rec.LMin) != len(rec.LMax) {
			return &ConfigurationError{Key: mode.String(), Reason: "LMIN and LMAX lengths differ"}
		}
		g, err := w.group(mode)
		if err != nil {
			return err
		}
		if err := writeColumn(&g.CommonFG, lminDataset, int64s(rec.LMin)); err != nil {
			return err
		}
		if err := writeColumn(&g.CommonFG, lmaxDataset, int64s(rec.LMax)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSpectrum writes a cross-spectrum record (multipoles, Dl, error in K^2).
func (w *Writer) WriteSpectrum(record Mode, rec SpectrumRecord) error {
	g, err := w.group(record)
	if err != nil {
		return err
	}
	if err := writeColumn(&g.CommonFG, ellDataset, int64s(rec.Ell)); err != nil {
		return err
	}
	if err := writeColumn(&g.CommonFG, dlDataset, rec.Dl); err != nil {
		return err
	}
	return writeColumn(&g.CommonFG, dlErrDataset, rec.DlErr)
}

// WriteCovariance writes a flat, row-major inverse covariance in K^-4.
func (w *Writer) WriteCovariance(data []float64) error {
	return writeColumn(&w.File.CommonFG, invkllDataset, data)
}

// WriteTemplate writes a foreground template with one Dl row per
// cross-frequency.
func (w *Writer) WriteTemplate(record Mode, rec TemplateRecord) error {
	g, err := w.group(record)
	if err != nil {
		return err
	}
	if err := writeColumn(&g.CommonFG, ellDataset, int64s(rec.Ell)); err != nil {
		return err
	}
	ncols := len(rec.Ell)
	flat := make([]float64, 0, len(rec.Dl)*ncols)
	for xf, row := range rec.Dl {
		if len(row) != ncols {
			return &ConfigurationError{Key: record.String(), Reason: fmt.Sprintf("template row %d has %d values for %d multipoles", xf, len(row), ncols)}
		}
		flat = append(flat, row...)
	}
	return writeShaped(&g.CommonFG, dlDataset, hdf5.T_NATIVE_DOUBLE, flat, []uint{uint(len(rec.Dl)), uint(ncols)})
}

func (w *Writer) Close() error {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file: %s", w.Filename), "writer")
	}
	var errs []error
	for _, g := range w.groups {
		if err := g.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WriteMultipoleRanges writes a multipole-range file from (lmin, lmax)
// lists for TT, EE, BB, TE and ET.
func WriteMultipoleRanges(filename string, tt, ee, bb, te, et [][2]int) error {
	records := make(map[Mode]RangeRecord)
	for mode, bins := range map[Mode][][2]int{TT: tt, EE: ee, BB: bb, TE: te, ET: et} {
		rec := RangeRecord{LMin: make([]int, len(bins)), LMax: make([]int, len(bins))}
		for i, b := range bins {
			rec.LMin[i], rec.LMax[i] = b[0], b[1]
		}
		records[mode] = rec
	}

	w, err := NewWriter(filename)
	if err != nil {
		return err
	}
	if err := w.WriteRanges(SpectrumModes, records); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
