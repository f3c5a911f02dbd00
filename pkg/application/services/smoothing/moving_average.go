package smoothing

// CenteredMovingAverage returns the mean of a window centered on each point.
// At the boundaries the window is truncated to the available points, so every
// position gets a defined average. Even windows extend one point further back
// than forward.
func CenteredMovingAverage(values []float64, window int) []float64 {
	return centeredAverage(values, window, false)
}

// leaveOneOutAverage is the centered average of the neighbors only. A point
// without neighbors averages to itself.
func leaveOneOutAverage(values []float64, window int) []float64 {
	return centeredAverage(values, window, true)
}

func centeredAverage(values []float64, window int, excludeCenter bool) []float64 {
	n := len(values)
	out := make([]float64, n)
	if window < 1 {
		window = 1
	}
	offset := (window - 1) / 2

	for i := range values {
		start := i + 1 - window + offset
		end := i + 1 + offset
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}

		var sum float64
		count := 0
		for j := start; j < end; j++ {
			if excludeCenter && j == i {
				continue
			}
			sum += values[j]
			count++
		}
		if count == 0 {
			out[i] = values[i]
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}
