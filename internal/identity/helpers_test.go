package identity

import (
	"math"
	"time"
)

// testDim keeps test embeddings small; the engine only cares that the
// dimensionality is consistent.
const testDim = 8

// unitVec returns a unit vector rotated by the given angle (degrees) in the
// plane of the first two components. The cosine distance between two such
// vectors is 1-cos(delta), which makes similarity thresholds easy to hit
// precisely in tests.
func unitVec(angleDeg float64) []float32 {
	rad := angleDeg * math.Pi / 180
	v := make([]float32, testDim)
	v[0] = float32(math.Cos(rad))
	v[1] = float32(math.Sin(rad))
	return v
}

func testRecord(id int64, angleDeg float64) *FaceRecord {
	return &FaceRecord{
		ID:        id,
		PhotoUID:  "photo-" + string(rune('a'+id%26)),
		Embedding: unitVec(angleDeg),
		DetScore:  0.9,
		CreatedAt: time.Now(),
	}
}
