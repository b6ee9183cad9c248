package onnx

import "math"

// softmax converts logits into probabilities, shifting by the maximum logit
// so large values do not overflow.
func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	sum := 0.0
	for i, l := range logits {
		e := math.Exp(float64(l) - maxLogit)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
