package artifact

import "sort"

// Matrix is a compressed sparse row user-by-product interaction matrix. It is
// built once during Load and never written afterwards.
type Matrix struct {
	rowPtr []int
	cols   []int
	vals   []float64
}

// Row is one user's interactions. The zero value is an empty row, which is
// what unknown or historyless users get.
type Row struct {
	cols []int
	vals []float64
}

type entry struct {
	row, col int
	val      float64
}

func newMatrix(rows int, entries []entry) *Matrix {
	// Aggregate duplicate (row, col) pairs, then lay out CSR in row-major,
	// column-ascending order.
	agg := make(map[[2]int]float64, len(entries))
	for _, e := range entries {
		agg[[2]int{e.row, e.col}] += e.val
	}
	flat := make([]entry, 0, len(agg))
	for k, v := range agg {
		flat = append(flat, entry{row: k[0], col: k[1], val: v})
	}
	sort.Slice(flat, func(i, j int) bool {
		if flat[i].row != flat[j].row {
			return flat[i].row < flat[j].row
		}
		return flat[i].col < flat[j].col
	})

	m := &Matrix{
		rowPtr: make([]int, rows+1),
		cols:   make([]int, 0, len(flat)),
		vals:   make([]float64, 0, len(flat)),
	}
	for _, e := range flat {
		m.cols = append(m.cols, e.col)
		m.vals = append(m.vals, e.val)
		m.rowPtr[e.row+1]++
	}
	for i := 1; i <= rows; i++ {
		m.rowPtr[i] += m.rowPtr[i-1]
	}
	return m
}

func (m *Matrix) Rows() int {
	return len(m.rowPtr) - 1
}

func (m *Matrix) Row(i int) Row {
	if i < 0 || i >= m.Rows() {
		return Row{}
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	return Row{cols: m.cols[lo:hi], vals: m.vals[lo:hi]}
}

func (r Row) Len() int {
	return len(r.cols)
}

func (r Row) At(i int) (col int, val float64) {
	return r.cols[i], r.vals[i]
}

// Has reports whether the row contains the given column. Columns are sorted,
// so this is a binary search.
func (r Row) Has(col int) bool {
	i := sort.SearchInts(r.cols, col)
	return i < len(r.cols) && r.cols[i] == col
}
