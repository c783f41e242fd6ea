package tensor

import (
	"math"
)

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Scale multiplies every element of x by s.
func Scale(x []float32, s float32) {
	for i := range x {
		x[i] *= s
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// LayerNorm normalizes src to zero mean and unit variance, then applies the
// per-feature gamma and beta. dst and src may alias.
func LayerNorm(dst, src, gamma, beta []float32, eps float32) {
	n := len(src)
	if n == 0 {
		return
	}
	var mean float64
	for _, v := range src {
		mean += float64(v)
	}
	mean /= float64(n)
	var variance float64
	for _, v := range src {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(n)
	inv := 1.0 / math.Sqrt(variance+float64(eps))
	for i, v := range src {
		dst[i] = float32((float64(v)-mean)*inv)*gamma[i] + beta[i]
	}
}

// ReLU clamps negative values of x to zero in place.
func ReLU(x []float32) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// Softmax applies the softmax function to x.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}
