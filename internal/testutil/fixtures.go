// Package testutil provides deterministic point-layout builders (2D and 3D
// grids and a straight-line cluster) used by the spart package's
// fixtures_test.go.
package testutil

// Grid2D returns the (x, y) coordinates of an n x n grid spaced apart by
// step, starting at the origin.
func Grid2D(n int, step float64) [][2]float64 {
	out := make([][2]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out = append(out, [2]float64{float64(i) * step, float64(j) * step})
		}
	}
	return out
}

// Grid3D returns the (x, y, z) coordinates of an n x n x n grid spaced apart
// by step, starting at the origin.
func Grid3D(n int, step float64) [][3]float64 {
	out := make([][3]float64, 0, n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				out = append(out, [3]float64{float64(i) * step, float64(j) * step, float64(k) * step})
			}
		}
	}
	return out
}

// LinearCluster2D returns n points along the line y = x, spaced apart by
// step, useful for exercising degenerate/aligned insert orders.
func LinearCluster2D(n int, step float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		out[i] = [2]float64{float64(i) * step, float64(i) * step}
	}
	return out
}
