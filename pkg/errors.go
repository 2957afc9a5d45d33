package hillipop

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a malformed parameter file, an invalid setting
// or inconsistent binning bounds.
type ConfigurationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Key != "" {
		msg = fmt.Sprintf("%s in %q", msg, e.Key)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// DataFormatError reports a missing or malformed record in one of the
// scientific input files.
type DataFormatError struct {
	Filename string
	Record   string
	Reason   string
	Err      error
}

func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("data format error in %q", e.Filename)
	if e.Record != "" {
		msg = fmt.Sprintf("%s (record %s)", msg, e.Record)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ForegroundShapeError reports a foreground model whose contribution does
// not have one spectrum over [0, lmax] per map pair.
type ForegroundShapeError struct {
	Model  string
	Mode   Mode
	Reason string
}

func (e *ForegroundShapeError) Error() string {
	return fmt.Sprintf("foreground %s (%v): %s", e.Model, e.Mode, e.Reason)
}
