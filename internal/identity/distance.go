package identity

import "math"

// maxCosineDistance is returned for degenerate input (mismatched or zero vectors).
const maxCosineDistance = 2.0

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical direction) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return maxCosineDistance
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return maxCosineDistance
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] against floating point drift.
	similarity = math.Min(1, math.Max(-1, similarity))

	return 1 - similarity
}

// distanceToConfidence converts a cosine distance into a recognition
// confidence in [0, 1]. Monotonic decreasing: identical embeddings map to
// 1.0, anything at distance >= 1 maps to 0.
func distanceToConfidence(distance float64) float64 {
	return math.Min(1, math.Max(0, 1-distance))
}

// centroid computes the element-wise mean of the given embeddings.
// All embeddings must share the same dimensionality.
func centroid(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}
	mean := make([]float32, len(embeddings[0]))
	for _, emb := range embeddings {
		for i := range mean {
			mean[i] += emb[i]
		}
	}
	for i := range mean {
		mean[i] /= float32(len(embeddings))
	}
	return mean
}
