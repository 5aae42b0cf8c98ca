package ballprediction

import (
	"fmt"

	"github.com/kognitive/BallPrediction/scope"
	"github.com/unixpickle/anydiff"
)

// Linear multiplies a batch of row vectors by the matrix
// parameter w, producing a batch of w.Shape.Rows values
// per vector.
func Linear(w *scope.Param, in anydiff.Res, batch int) anydiff.Res {
	if in.Output().Len() != batch*w.Shape.Cols {
		panic(fmt.Sprintf("%s: input length should be %d, but got %d", w.Name,
			batch*w.Shape.Cols, in.Output().Len()))
	}
	inMat := &anydiff.Matrix{Data: in, Rows: batch, Cols: w.Shape.Cols}
	return anydiff.MatMul(false, true, inMat, w.Matrix()).Data
}

// SliceCols selects the columns [start, end) from a batch
// of row vectors with cols columns each.
func SliceCols(in anydiff.Res, batch, cols, start, end int) anydiff.Res {
	if in.Output().Len() != batch*cols {
		panic(fmt.Sprintf("input length should be %d, but got %d", batch*cols,
			in.Output().Len()))
	}
	if start < 0 || end > cols || start > end {
		panic(fmt.Sprintf("column range [%d, %d) out of bounds", start, end))
	}
	if batch == 1 {
		return anydiff.Slice(in, start, end)
	}
	t := anydiff.Transpose(&anydiff.Matrix{Data: in, Rows: batch, Cols: cols})
	part := &anydiff.Matrix{
		Data: anydiff.Slice(t.Data, start*batch, end*batch),
		Rows: end - start,
		Cols: batch,
	}
	return anydiff.Transpose(part).Data
}

// JoinCols concatenates batches of row vectors along their
// columns.
// It is the inverse of SliceCols.
func JoinCols(batch int, parts ...anydiff.Res) anydiff.Res {
	if len(parts) == 0 {
		panic("nothing to join")
	} else if len(parts) == 1 {
		return parts[0]
	}
	if batch == 1 {
		return anydiff.Concat(parts...)
	}
	var cols int
	var transposed []anydiff.Res
	for _, p := range parts {
		if p.Output().Len()%batch != 0 {
			panic("batch size must divide input length")
		}
		c := p.Output().Len() / batch
		t := anydiff.Transpose(&anydiff.Matrix{Data: p, Rows: batch, Cols: c})
		transposed = append(transposed, t.Data)
		cols += c
	}
	joined := &anydiff.Matrix{Data: anydiff.Concat(transposed...), Rows: cols, Cols: batch}
	return anydiff.Transpose(joined).Data
}

// SplitCols cuts a batch of row vectors into consecutive
// column groups with the given widths.
func SplitCols(in anydiff.Res, batch int, widths []int) []anydiff.Res {
	if len(widths) == 1 {
		return []anydiff.Res{in}
	}
	var total int
	for _, w := range widths {
		total += w
	}
	res := make([]anydiff.Res, len(widths))
	var start int
	for i, w := range widths {
		res[i] = SliceCols(in, batch, total, start, start+w)
		start += w
	}
	return res
}
