package detection

// AWS Rekognition detect-labels sidecars.

import (
	"encoding/json"

	"github.com/foghegehog/inference-server/annotate"
)

// awsBoundingBox defines an axis-aligned rectangle with the dimensions given as normalised ratios
// of the image size.
type awsBoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// awsInstance is an object instance in an AWS label.
type awsInstance struct {
	BoundingBox awsBoundingBox
	Confidence  float64 // Range [0, 100].
}

// awsLabel is a single label within an AWS labels file.
type awsLabel struct {
	Confidence float64 // Range [0, 100].
	Instances  []awsInstance
	Name       string
}

type awsDetectLabelsFile struct {
	Labels       []awsLabel
	ModelVersion string `json:"LabelModelVersion"`
}

// parseAWSDetectLabels unrolls the label instances in data into detections. Labels without
// instances do not locate an object and are ignored.
func parseAWSDetectLabels(data []byte) ([]Detection, error) {
	var file awsDetectLabelsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	ds := make([]Detection, 0, len(file.Labels))
	for _, l := range file.Labels {
		for _, i := range l.Instances {
			b := i.BoundingBox
			ds = append(ds, Detection{
				Score: i.Confidence / 100,
				Box: annotate.NormalizedBox{
					X0: b.Left,
					Y0: b.Top,
					X1: b.Left + b.Width,
					Y1: b.Top + b.Height,
				},
				Label: l.Name,
			})
		}
	}

	return ds, nil
}
