package fixed

func Mean(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}
	sum := Zero
	for _, point := range points {
		sum = sum.Add(point)
	}
	return sum.DivInt(len(points))
}

func StdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	sum := Zero
	for _, point := range points {
		diff := point.Sub(mean)
		sum = sum.Add(diff.Mul(diff))
	}

	return sum.DivInt(len(points)).Sqrt()
}

// MaxDrawdown returns the largest peak-to-trough decline over an equity series,
// expressed as a fraction of the peak.
func MaxDrawdown(points []Point) Point {
	if len(points) == 0 {
		return Zero
	}

	peak := points[0]
	maxDd := Zero
	for _, point := range points {
		if point.Gt(peak) {
			peak = point
		}
		if peak.IsPos() {
			dd := peak.Sub(point).Div(peak)
			if dd.Gt(maxDd) {
				maxDd = dd
			}
		}
	}
	return maxDd
}
