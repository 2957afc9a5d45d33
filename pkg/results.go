package hillipop

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Evaluation is the outcome of one likelihood evaluation of a parameter set.
type Evaluation struct {
	Index  int
	Values []float64
	Chi2   float64
	PValue float64
	Err    error
}

type EvaluationHDF5 struct {
	index  int32
	chi2   float64
	pvalue float64
	failed int32
}

type ParameterNameHDF5 struct {
	index int32
	name  [STRLEN]byte
}

const STRLEN = 20

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

// ResultsWriter appends evaluations to an HDF5 file: a "scan/evaluations"
// table, a "scan/parameters" array with one row of parameter values per
// evaluation and a "scan/names" table with the parameter names.
type ResultsWriter struct {
	File        *hdf5.File
	Filename    string
	ScanGroup   *hdf5.Group
	EvalTable   *hdf5.Dataset
	NamesTable  *hdf5.Dataset
	ParamsArray *hdf5.Dataset
	NParams     int
	EvtCounter  int
	compression int
}

func create2dArray(group *hdf5.Group, name string, ncols int, compression int) (*hdf5.Dataset, error) {
	dimsArray := []uint{0, uint(ncols)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDimsArray := []uint{uint(unlimitedDims), uint(ncols)}
	chunks := []uint{1024, uint(ncols)}
	return createArray(group, name, dimsArray, maxDimsArray, chunks, hdf5.T_NATIVE_DOUBLE, compression)
}

func createArray(group *hdf5.Group, name string, dims []uint, maxDims []uint, chunks []uint,
	dtype *hdf5.Datatype, compression int) (*hdf5.Dataset, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("error creating dataspace for %q: %w", name, err)
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("error creating property list for %q: %w", name, err)
	}
	defer plist.Close()

	if err := plist.SetChunk(chunks); err != nil {
		return nil, fmt.Errorf("error setting chunks for %q: %w", name, err)
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, fmt.Errorf("error setting compression for %q: %w", name, err)
		}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("error creating datatype for %q: %w", name, err)
	}
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	chunks := []uint{1024}
	return createArray(group, name, dims, maxDims, chunks, dtype, compression)
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	// extend
	newsize := []uint{uint(rowsInFile) + length}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowsInFile)}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

func write2dArray(dataset *hdf5.Dataset, data *[]float64, rowsInFile int, nrows int, ncols int) error {
	if nrows == 0 {
		return nil
	}
	// extend
	newsize := []uint{uint(rowsInFile + nrows), uint(ncols)}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(rowsInFile), 0}
	count := []uint{uint(nrows), uint(ncols)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}

func NewResultsWriter(filename string, paramNames []string, compression int) (*ResultsWriter, error) {
	if len(paramNames) == 0 {
		return nil, &ConfigurationError{Key: "parameters", Reason: "no parameter to record"}
	}
	f, err := createFile(filename)
	if err != nil {
		return nil, err
	}
	w := &ResultsWriter{File: f, Filename: filename, NParams: len(paramNames), compression: compression}
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating results file: %s", filename), "results")
	}

	if err := w.init(paramNames); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *ResultsWriter) init(paramNames []string) error {
	var err error
	w.ScanGroup, err = createGroup(w.File, "scan")
	if err != nil {
		return err
	}
	w.EvalTable, err = createTable(w.ScanGroup, "evaluations", EvaluationHDF5{}, w.compression)
	if err != nil {
		return err
	}
	w.NamesTable, err = createTable(w.ScanGroup, "names", ParameterNameHDF5{}, w.compression)
	if err != nil {
		return err
	}
	w.ParamsArray, err = create2dArray(w.ScanGroup, "parameters", len(paramNames), w.compression)
	if err != nil {
		return err
	}

	names := make([]ParameterNameHDF5, len(paramNames))
	for i, name := range paramNames {
		names[i] = ParameterNameHDF5{index: int32(i), name: convertToHdf5String(name)}
	}
	return writeArrayToTable(w.NamesTable, &names, 0)
}

// Write appends a batch of evaluations.
func (w *ResultsWriter) Write(evals []Evaluation) error {
	// The arrays MUST be allocated at creation, HDF5 reads them by address
	rows := make([]EvaluationHDF5, len(evals))
	values := make([]float64, len(evals)*w.NParams)
	for i, ev := range evals {
		if len(ev.Values) != w.NParams {
			return fmt.Errorf("evaluation %d has %d parameter values, expected %d", ev.Index, len(ev.Values), w.NParams)
		}
		rows[i] = EvaluationHDF5{index: int32(ev.Index), chi2: ev.Chi2, pvalue: ev.PValue}
		if ev.Err != nil {
			rows[i].failed = 1
		}
		copy(values[i*w.NParams:], ev.Values)
	}

	if err := writeArrayToTable(w.EvalTable, &rows, w.EvtCounter); err != nil {
		return fmt.Errorf("error writing evaluations: %w", err)
	}
	if err := write2dArray(w.ParamsArray, &values, w.EvtCounter, len(evals), w.NParams); err != nil {
		return fmt.Errorf("error writing parameters: %w", err)
	}
	w.EvtCounter += len(evals)
	return nil
}

func (w *ResultsWriter) Close() error {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing results file: %s", w.Filename), "results")
	}
	var errs []error

	if w.EvalTable != nil {
		if err := w.EvalTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing evaluations table: %w", err))
		}
	}
	if w.NamesTable != nil {
		if err := w.NamesTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing names table: %w", err))
		}
	}
	if w.ParamsArray != nil {
		if err := w.ParamsArray.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing parameters array: %w", err))
		}
	}
	if w.ScanGroup != nil {
		if err := w.ScanGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing scan group: %w", err))
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
