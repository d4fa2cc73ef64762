package vector

import (
	"fmt"
	"math"

	"github.com/hyperjump/matchfeed/internal/models"
)

// Validate reports ErrInvalidInput when v is empty, has the wrong dimension, holds a
// non-finite component or has zero norm. dims <= 0 skips the dimension check.
func Validate(v []float32, dims int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", models.ErrInvalidInput)
	}
	if dims > 0 && len(v) != dims {
		return fmt.Errorf("%w: vector dimension %d, expected %d", models.ErrInvalidInput, len(v), dims)
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: non-finite component at %d", models.ErrInvalidInput, i)
		}
	}
	if L2Norm(v) == 0 {
		return fmt.Errorf("%w: zero-norm vector", models.ErrInvalidInput)
	}
	return nil
}

// InnerProduct returns the inner product of two vectors, accumulated in float64.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1].
// Mismatched lengths or a zero-norm side yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	c := InnerProduct(a, b) / (na * nb)
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}

// Normalized returns a unit-norm copy of v and false when v has zero or non-finite norm.
func Normalized(v []float32) ([]float32, bool) {
	n := L2Norm(v)
	if n == 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, false
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, true
}

// Normalized64 is Normalized for float64 accumulators; the result is converted to float32.
func Normalized64(v []float64) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	n := math.Sqrt(sum)
	if n == 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, false
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x / n)
	}
	return out, true
}

// Mean returns the component-wise mean of vectors in float64, summed in slice order.
// All vectors must share the dimension of the first one.
func Mean(vectors [][]float32) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: mean of zero vectors", models.ErrInvalidInput)
	}
	dims := len(vectors[0])
	sum := make([]float64, dims)
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", models.ErrInvalidInput, i, len(v), dims)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	n := float64(len(vectors))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}
