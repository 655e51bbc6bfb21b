package detect

import "sort"

// DefaultIoUThreshold is the bounding box overlap above which two
// detections are treated as the same face.
const DefaultIoUThreshold = 0.5

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	// Calculate intersection.
	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)

	// Calculate union.
	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// DedupeDetections drops detections whose bounding box overlaps a
// higher-scoring detection beyond the IoU threshold. Detection services
// occasionally report the same face twice at slightly different crops.
// The surviving detections keep their score order, best first.
func DedupeDetections(faces []Detection, iouThreshold float64) []Detection {
	if len(faces) < 2 {
		return faces
	}

	sorted := make([]Detection, len(faces))
	copy(sorted, faces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DetScore > sorted[j].DetScore
	})

	kept := make([]Detection, 0, len(sorted))
	for _, candidate := range sorted {
		duplicate := false
		for _, winner := range kept {
			if ComputeIoU(candidate.BBox, winner.BBox) > iouThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}
