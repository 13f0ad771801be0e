package preprocessing

import (
	"sort"

	"konutpricer/core/model"
	"konutpricer/frame"
	kperrors "konutpricer/pkg/errors"
)

// OneHotEncoder converts categorical string columns into indicator
// features named "<column>_<category>". With DropFirst set, the first
// (lexicographically smallest) category of each column is omitted as the
// reference level. Categories unseen at fit time encode to all zeros.
// Fields are exported for gob encoding.
type OneHotEncoder struct {
	State      *model.StateManager
	Columns    []string
	Categories [][]string
	DropFirst  bool
}

// NewOneHotEncoder creates an encoder for the named columns.
func NewOneHotEncoder(columns []string, dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{
		State:     model.NewStateManager(),
		Columns:   columns,
		DropFirst: dropFirst,
	}
}

// Fit learns the sorted category set of each column. data holds one slice
// per row, with one cell per configured column.
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer kperrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 {
		return kperrors.NewModelError("OneHotEncoder.Fit", "empty data", kperrors.ErrEmptyData)
	}
	nCols := len(e.Columns)
	e.Categories = make([][]string, nCols)
	for j := 0; j < nCols; j++ {
		set := make(map[string]bool)
		for i, row := range data {
			if len(row) != nCols {
				return kperrors.NewDimensionError("OneHotEncoder.Fit", nCols, len(row), i)
			}
			set[row[j]] = true
		}
		cats := make([]string, 0, len(set))
		for c := range set {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	e.State.SetFitted()
	e.State.SetDimensions(nCols, len(data))
	return nil
}

// Transform encodes data into an indicator frame.
func (e *OneHotEncoder) Transform(data [][]string) (_ *frame.Frame, err error) {
	defer kperrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.State.IsFitted() {
		return nil, kperrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	out := frame.New(len(data))
	for j, col := range e.Columns {
		start := 0
		if e.DropFirst {
			start = 1
		}
		for k := start; k < len(e.Categories[j]); k++ {
			cat := e.Categories[j][k]
			values := make([]float64, len(data))
			for i, row := range data {
				if j < len(row) && row[j] == cat {
					values[i] = 1
				}
			}
			if err := out.AddColumn(col+"_"+cat, values); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// FitTransform fits the encoder and transforms data in one step.
func (e *OneHotEncoder) FitTransform(data [][]string) (*frame.Frame, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}
