package storage

// RowsPerStatement is how many rows fit in one multi-row statement when each
// row binds `columns` parameters and the store accepts at most maxParams
// parameters and maxRows row constructors per statement (zero: no row cap).
// It is always at least 1.
func RowsPerStatement(columns, maxParams, maxRows int) int {
	n := maxParams / max(1, columns)
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	return max(1, n)
}

// Chunks splits rows into consecutive slices of at most size rows.
func Chunks(rows [][]any, size int) [][][]any {
	if size <= 0 || len(rows) <= size {
		if len(rows) == 0 {
			return nil
		}
		return [][][]any{rows}
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
