package hillipop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// K^-4 to muK^-4
	invKelvin4ToMicro = 1e24
)

// InverseCovariance is the inverse covariance of the flattened data vector:
// active modes in canonical order, cross-frequencies in canonical order,
// multipoles ascending.
type InverseCovariance struct {
	m *mat.Dense
}

// CovarianceName is the logical name of the covariance of the active modes.
func CovarianceName(base string, modes ModeSet) string {
	return base + modes.CovarianceSuffix()
}

// LoadInverseCovariance reads the flat inverse covariance of the active
// modes and checks it against the number of retained multipoles.
func LoadInverseCovariance(src Source, base string, modes ModeSet, table *MultipoleRangeTable) (*InverseCovariance, error) {
	name := CovarianceName(base, modes)
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading inverse covariance: %s", name), "covariance")
	}

	data, err := src.ReadInverseCovariance(name)
	if err != nil {
		return nil, &DataFormatError{Filename: name, Reason: "cannot read covariance matrix", Err: err}
	}

	nell := table.NBins(modes)
	nel := int(math.Sqrt(float64(len(data))))
	if nel*nel != len(data) || nel != nell {
		return nil, &DataFormatError{Filename: name,
			Reason: fmt.Sprintf("incoherent covariance matrix: %d elements for %d retained multipoles", len(data), nell)}
	}

	scaled := make([]float64, len(data))
	for i, v := range data {
		scaled[i] = v / invKelvin4ToMicro
	}
	return NewInverseCovariance(nel, scaled)
}

// NewInverseCovariance wraps a row-major n x n matrix already in muK^-4.
func NewInverseCovariance(n int, data []float64) (*InverseCovariance, error) {
	if n <= 0 || len(data) != n*n {
		return nil, fmt.Errorf("invalid covariance: %d elements for dimension %d", len(data), n)
	}
	return &InverseCovariance{m: mat.NewDense(n, n, data)}, nil
}

func (c *InverseCovariance) Dim() int {
	n, _ := c.m.Dims()
	return n
}

// QuadraticForm returns x^T M x.
func (c *InverseCovariance) QuadraticForm(x []float64) (float64, error) {
	if len(x) != c.Dim() {
		return 0, fmt.Errorf("vector of length %d for covariance of dimension %d", len(x), c.Dim())
	}
	v := mat.NewVecDense(len(x), x)
	return mat.Inner(v, c.m, v), nil
}
