// Package detection holds the detections drawn onto streamed frames and their post-processing.
package detection

import (
	"fmt"
	"sort"

	"github.com/foghegehog/inference-server/annotate"
)

// Default post-processing parameters of the face detector.
const (
	DefaultThreshold  = 0.9
	DefaultClassIndex = 1
	DefaultNumClasses = 2
	DefaultIoU        = 0.5
)

// Detection is a single detected object.
type Detection struct {
	Score float64                // Linear confidence value, usually in [0, 1].
	Box   annotate.NormalizedBox // x0, y0, x1, y1 as fractions of the frame size.
	Label string                 // Optional.
}

// Area is the box area in normalized units.
func (d Detection) Area() float64 {
	return d.Box.Width() * d.Box.Height()
}

// SortByScore orders ds by descending score. Detections with equal scores keep their order.
func SortByScore(ds []Detection) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Score > ds[j].Score
	})
}

// Threshold returns the detections with a score above minScore.
func Threshold(ds []Detection, minScore float64) []Detection {
	kept := make([]Detection, 0, len(ds))
	for _, d := range ds {
		if d.Score > minScore {
			kept = append(kept, d)
		}
	}
	return kept
}

// intersectionArea returns the overlap of the boxes of a and b, zero if they do not overlap.
func intersectionArea(a, b Detection) float64 {
	w := min(a.Box.X1, b.Box.X1) - max(a.Box.X0, b.Box.X0)
	h := min(a.Box.Y1, b.Box.Y1) - max(a.Box.Y0, b.Box.Y0)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// IoU is the intersection over union of the boxes of a and b. It is zero for an empty union.
func IoU(a, b Detection) float64 {
	inter := intersectionArea(a, b)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS applies greedy non-maximum suppression: detections are visited by descending score and
// dropped if their IoU with an already kept detection exceeds iouThreshold. The result is sorted
// by descending score. ds is not modified.
func NMS(ds []Detection, iouThreshold float64) []Detection {
	sorted := append([]Detection(nil), ds...)
	SortByScore(sorted)

	kept := make([]Detection, 0, len(sorted))
	for _, proposal := range sorted {
		discard := false
		for _, k := range kept {
			if IoU(proposal, k) > iouThreshold {
				discard = true
				break
			}
		}
		if !discard {
			kept = append(kept, proposal)
		}
	}

	return kept
}

// RawOutput is the unprocessed output of a detector: for n candidates, Scores holds
// n*NumClasses class scores and Boxes n*4 normalized corners.
type RawOutput struct {
	NumClasses int       `yaml:"num_classes" json:"num_classes"`
	Scores     []float64 `yaml:"scores" json:"scores"`
	Boxes      []float64 `yaml:"boxes" json:"boxes"`
}

// Params configure the post-processing of a RawOutput.
type Params struct {
	ClassIndex int     // The index of the class score to use.
	Threshold  float64 // Minimum score (exclusive).
	IoU        float64 // The NMS overlap threshold.
	Label      string  // The label given to the detections.
}

// DefaultParams returns the parameters of the face detector.
func DefaultParams() Params {
	return Params{
		ClassIndex: DefaultClassIndex,
		Threshold:  DefaultThreshold,
		IoU:        DefaultIoU,
		Label:      "face",
	}
}

// FromRaw turns raw detector output into detections: candidates with a class score above the
// threshold are kept, then NMS is applied.
func FromRaw(raw RawOutput, p Params) ([]Detection, error) {
	numClasses := raw.NumClasses
	if numClasses == 0 {
		numClasses = DefaultNumClasses
	}
	if p.ClassIndex < 0 || p.ClassIndex >= numClasses {
		return nil, fmt.Errorf("class index %d out of range for %d classes", p.ClassIndex,
			numClasses)
	}
	if len(raw.Scores)%numClasses != 0 {
		return nil, fmt.Errorf("%d scores are not a multiple of %d classes", len(raw.Scores),
			numClasses)
	}
	n := len(raw.Scores) / numClasses
	if len(raw.Boxes) != n*annotate.NumCorners {
		return nil, fmt.Errorf("expected %d box values for %d candidates, got %d",
			n*annotate.NumCorners, n, len(raw.Boxes))
	}

	candidates := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		score := raw.Scores[i*numClasses+p.ClassIndex]
		if score <= p.Threshold {
			continue
		}
		var box [annotate.NumCorners]float64
		copy(box[:], raw.Boxes[i*annotate.NumCorners:])
		candidates = append(candidates, Detection{
			Score: score,
			Box:   annotate.BoxFromArray(box),
			Label: p.Label,
		})
	}

	return NMS(candidates, p.IoU), nil
}
