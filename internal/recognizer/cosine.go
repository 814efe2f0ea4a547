package recognizer

import "math"

// cosineDistance computes 1 - cosine similarity between two feature vectors.
// Ranges from 0 (identical direction) to 2 (opposite); invalid input maps to
// the maximum distance so it can never masquerade as a match.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point error.
	similarity = max(-1, min(1, similarity))

	return 1 - similarity
}
