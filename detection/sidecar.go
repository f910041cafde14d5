package detection

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/frames"
	"gopkg.in/yaml.v3"
)

// Format is a sidecar file format. Sidecars are stored next to the frames, named after the frame
// with the extension of the format.
type Format string

// Supported sidecar formats.
const (
	FormatYAML  Format = "yaml"  // Detections and/or raw detector output. JSON is accepted too.
	FormatKITTI Format = "kitti" // One object per line, pixel coordinates.
	FormatAWS   Format = "aws"   // AWS Rekognition detect-labels JSON.
)

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatYAML, FormatKITTI, FormatAWS:
		return f, nil
	case "":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown sidecar format %q", s)
}

// Ext is the file extension of the format, with the dot.
func (f Format) Ext() string {
	switch f {
	case FormatKITTI:
		return ".txt"
	case FormatAWS:
		return ".json"
	}
	return ".yaml"
}

// Source provides the detections of a frame.
type Source interface {
	Detections(f frames.Frame) ([]Detection, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(f frames.Frame) ([]Detection, error)

func (fn SourceFunc) Detections(f frames.Frame) ([]Detection, error) {
	return fn(f)
}

// SidecarSource reads the detections of a frame from its sidecar file. A frame without a sidecar
// has no detections.
type SidecarSource struct {
	Format Format
	Params Params // Applied to raw detector output.
}

// NewSidecarSource returns a source for format with the face detector parameters.
func NewSidecarSource(format Format) *SidecarSource {
	return &SidecarSource{Format: format, Params: DefaultParams()}
}

// Path is the sidecar path of the frame.
func (s *SidecarSource) Path(f frames.Frame) string {
	return filepath.Join(f.Dir, f.Name+s.Format.Ext())
}

func (s *SidecarSource) Detections(f frames.Frame) ([]Detection, error) {
	path := s.Path(f)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read sidecar %q: %v", path, err)
	}

	var ds []Detection
	switch s.Format {
	case FormatKITTI:
		if f.Image == nil {
			return nil, fmt.Errorf("frame %q has no image to scale %q", f.Name, path)
		}
		b := f.Image.Bounds()
		ds = parseKITTI(data, path, b.Dx(), b.Dy())
	case FormatAWS:
		ds, err = parseAWSDetectLabels(data)
	default:
		ds, err = parseYAML(data, s.Params)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse sidecar %q: %v", path, err)
	}

	SortByScore(ds)
	return ds, nil
}

// yamlFile is the layout of a yaml sidecar.
type yamlFile struct {
	Detections []yamlDetection `yaml:"detections,omitempty"`
	Raw        *RawOutput      `yaml:"raw,omitempty"`
}

type yamlDetection struct {
	Score float64   `yaml:"score"`
	Box   []float64 `yaml:"box,flow"`
	Label string    `yaml:"label,omitempty"`
}

// parseYAML returns the listed detections followed by the post-processed raw output.
func parseYAML(data []byte, p Params) ([]Detection, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	ds := make([]Detection, 0, len(file.Detections))
	for i, d := range file.Detections {
		if len(d.Box) != annotate.NumCorners {
			return nil, fmt.Errorf("detection %d: expected %d box values, got %d", i,
				annotate.NumCorners, len(d.Box))
		}
		var box [annotate.NumCorners]float64
		copy(box[:], d.Box)
		ds = append(ds, Detection{Score: d.Score, Box: annotate.BoxFromArray(box), Label: d.Label})
	}

	if file.Raw != nil {
		raw, err := FromRaw(*file.Raw, p)
		if err != nil {
			return nil, err
		}
		ds = append(ds, raw...)
	}

	return ds, nil
}

// WriteYAML writes ds as a yaml sidecar to path.
func WriteYAML(path string, ds []Detection) error {
	file := yamlFile{Detections: make([]yamlDetection, len(ds))}
	for i, d := range ds {
		box := d.Box.Array()
		file.Detections[i] = yamlDetection{Score: d.Score, Box: box[:], Label: d.Label}
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("cannot encode detections: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %q: %v", path, err)
	}
	return nil
}
