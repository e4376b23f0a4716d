package board

// reshapeColumnMajor transposes rows (sample-major: one []float64 per
// sample, width channels each) into column-major layout: one []float64
// per channel, len(rows) samples each. This is the layout
// GetBoardData/GetCurrentBoardData hand back to callers, matching the
// driver-contract convention that channel data is addressed as
// data[channel][sample].
func reshapeColumnMajor(rows [][]float64, width int) [][]float64 {
	out := make([][]float64, width)
	for c := 0; c < width; c++ {
		out[c] = make([]float64, len(rows))
	}
	for i, row := range rows {
		for c := 0; c < width && c < len(row); c++ {
			out[c][i] = row[c]
		}
	}
	return out
}
