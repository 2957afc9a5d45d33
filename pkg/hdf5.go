package hillipop

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"golang.org/x/exp/constraints"
)

// Names of the HDF5 groups and datasets of the likelihood input files.
const (
	lminDataset   = "LMIN"
	lmaxDataset   = "LMAX"
	ellDataset    = "ELL"
	dlDataset     = "DL"
	dlErrDataset  = "DLERR"
	invkllDataset = "INVKLL"
)

// HDF5Source reads the likelihood inputs from HDF5 files. Each record is a
// group named after its mode.
type HDF5Source struct {
	Ext string
}

func NewHDF5Source() *HDF5Source {
	return &HDF5Source{Ext: ".h5"}
}

func (s *HDF5Source) filename(name string) string {
	return name + s.Ext
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.OpenFile(fname, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func readColumn[T constraints.Integer | constraints.Float](loc *hdf5.CommonFG, name string) ([]T, error) {
	dset, err := loc.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset %q: %w", name, err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	n := space.SimpleExtentNPoints()
	data := make([]T, n)
	if n == 0 {
		return data, nil
	}
	if err := dset.Read(&data); err != nil {
		return nil, fmt.Errorf("error reading dataset %q: %w", name, err)
	}
	return data, nil
}

func readMatrix(loc *hdf5.CommonFG, name string) ([][]float64, error) {
	dset, err := loc.OpenDataset(name)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset %q: %w", name, err)
	}
	defer dset.Close()

	space := dset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, fmt.Errorf("error reading shape of %q: %w", name, err)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("dataset %q has %d dimensions, expected 2", name, len(dims))
	}
	nrows, ncols := int(dims[0]), int(dims[1])
	flat := make([]float64, nrows*ncols)
	if len(flat) > 0 {
		if err := dset.Read(&flat); err != nil {
			return nil, fmt.Errorf("error reading dataset %q: %w", name, err)
		}
	}
	rows := make([][]float64, nrows)
	for i := range rows {
		rows[i] = flat[i*ncols : (i+1)*ncols]
	}
	return rows, nil
}

func toInts[T constraints.Integer](in []T) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func (s *HDF5Source) ReadMultipoleRanges(name string) (map[Mode]RangeRecord, error) {
	fname := s.filename(name)
	f, err := openFile(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make(map[Mode]RangeRecord)
	for _, mode := range RangeRecords {
		group, err := f.OpenGroup(mode.String())
		if err != nil {
			return nil, &DataFormatError{Filename: fname, Record: mode.String(), Reason: "missing record", Err: err}
		}
		lmins, err := readColumn[int64](&group.CommonFG, lminDataset)
		if err == nil {
			var lmaxs []int64
			lmaxs, err = readColumn[int64](&group.CommonFG, lmaxDataset)
			records[mode] = RangeRecord{LMin: toInts(lmins), LMax: toInts(lmaxs)}
		}
		group.Close()
		if err != nil {
			return nil, &DataFormatError{Filename: fname, Record: mode.String(), Reason: "malformed record", Err: err}
		}
	}
	return records, nil
}

func (s *HDF5Source) ReadCrossSpectrum(name string, record Mode) (SpectrumRecord, error) {
	fname := s.filename(name)
	f, err := openFile(fname)
	if err != nil {
		return SpectrumRecord{}, err
	}
	defer f.Close()

	group, err := f.OpenGroup(record.String())
	if err != nil {
		return SpectrumRecord{}, &DataFormatError{Filename: fname, Record: record.String(), Reason: "missing record", Err: err}
	}
	defer group.Close()

	ell, err := readColumn[int64](&group.CommonFG, ellDataset)
	if err != nil {
		return SpectrumRecord{}, &DataFormatError{Filename: fname, Record: record.String(), Reason: "malformed record", Err: err}
	}
	dl, err := readColumn[float64](&group.CommonFG, dlDataset)
	if err != nil {
		return SpectrumRecord{}, &DataFormatError{Filename: fname, Record: record.String(), Reason: "malformed record", Err: err}
	}
	dlErr, err := readColumn[float64](&group.CommonFG, dlErrDataset)
	if err != nil {
		return SpectrumRecord{}, &DataFormatError{Filename: fname, Record: record.String(), Reason: "malformed record", Err: err}
	}
	return SpectrumRecord{Ell: toInts(ell), Dl: dl, DlErr: dlErr}, nil
}

func (s *HDF5Source) ReadInverseCovariance(name string) ([]float64, error) {
	fname := s.filename(name)
	f, err := openFile(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := readColumn[float64](&f.CommonFG, invkllDataset)
	if err != nil {
		return nil, &DataFormatError{Filename: fname, Record: invkllDataset, Reason: "malformed record", Err: err}
	}
	return data, nil
}

func (s *HDF5Source) ReadTemplate(name string, mode Mode) (TemplateRecord, error) {
	fname := s.filename(name)
	f, err := openFile(fname)
	if err != nil {
		return TemplateRecord{}, err
	}
	defer f.Close()

	group, err := f.OpenGroup(mode.String())
	if err != nil {
		return TemplateRecord{}, &DataFormatError{Filename: fname, Record: mode.String(), Reason: "missing record", Err: err}
	}
	defer group.Close()

	ell, err := readColumn[int64](&group.CommonFG, ellDataset)
	if err != nil {
		return TemplateRecord{}, &DataFormatError{Filename: fname, Record: mode.String(), Reason: "malformed record", Err: err}
	}
	dl, err := readMatrix(&group.CommonFG, dlDataset)
	if err != nil {
		return TemplateRecord{}, &DataFormatError{Filename: fname, Record: mode.String(), Reason: "malformed record", Err: err}
	}
	return TemplateRecord{Ell: toInts(ell), Dl: dl}, nil
}
