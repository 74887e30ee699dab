package fixed

import (
	"testing"
)

func points(values ...int) []Point {
	out := make([]Point, 0, len(values))
	for _, v := range values {
		out = append(out, FromInt(v, 0))
	}
	return out
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   string
	}{
		{"empty", nil, "0"},
		{"single", points(5), "5"},
		{"several", points(1, 2, 3, 4), "2.5"},
		{"negative mix", points(-2, 2), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := FromString(tt.want)
			if got := Mean(tt.points); !got.Eq(want) {
				t.Errorf("Mean = %s; want %s", got.String(), tt.want)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	series := points(2, 4, 4, 4, 5, 5, 7, 9)
	mean := Mean(series)
	if !mean.Eq(FromInt(5, 0)) {
		t.Fatalf("mean = %s", mean.String())
	}

	// Population standard deviation of this series is exactly 2.
	if got := StdDev(series, mean); !got.Eq(FromInt(2, 0)) {
		t.Errorf("StdDev = %s; want 2", got.String())
	}

	if !StdDev(points(1), One).IsZero() {
		t.Error("single point must have zero deviation")
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   string
	}{
		{"empty", nil, "0"},
		{"monotonic up", points(1, 2, 3), "0"},
		{"half drop", points(100, 50), "0.5"},
		{"recovers", points(100, 80, 120, 60), "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := FromString(tt.want)
			if got := MaxDrawdown(tt.points); !got.Eq(want) {
				t.Errorf("MaxDrawdown = %s; want %s", got.String(), tt.want)
			}
		})
	}
}
