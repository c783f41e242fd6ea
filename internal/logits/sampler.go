// Package logits selects tokens from next-token score vectors.
package logits

import (
	"errors"
	"math"
)

// ErrEmptyLogits is returned when a score vector has no entries.
var ErrEmptyLogits = errors.New("logits: empty score vector")

// Argmax returns the index of the highest score. Ties resolve to the
// lowest index. NaN scores never win.
func Argmax(x []float32) (int, error) {
	if len(x) == 0 {
		return 0, ErrEmptyLogits
	}
	bestI := -1
	var bestV float32
	for i, v := range x {
		if math.IsNaN(float64(v)) {
			continue
		}
		if bestI < 0 || v > bestV {
			bestV = v
			bestI = i
		}
	}
	if bestI < 0 {
		// All NaN: fall back to the first index.
		return 0, nil
	}
	return bestI, nil
}

// Candidate is one entry of a TopK shortlist.
type Candidate struct {
	ID    int
	Logit float32
	Prob  float64 // softmax over the full vector
}

// TopK returns the k highest-scoring entries, largest first. Prob is
// computed against the whole vector so callers can see how peaked the
// distribution is. This is O(V*K) and meant for small k.
func TopK(x []float32, k int) []Candidate {
	k = min(k, len(x))
	if k <= 0 {
		return nil
	}

	topIdx := make([]int, 0, k+1)
	topVal := make([]float32, 0, k+1)
	for i, v := range x {
		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)
		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v
		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}

	maxv := topVal[0]
	var sum float64
	for _, v := range x {
		sum += math.Exp(float64(v - maxv))
	}
	out := make([]Candidate, len(topIdx))
	for i := range topIdx {
		out[i] = Candidate{ID: topIdx[i], Logit: topVal[i]}
		if sum > 0 {
			out[i].Prob = math.Exp(float64(topVal[i]-maxv)) / sum
		}
	}
	return out
}
