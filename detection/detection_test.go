package detection

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/foghegehog/inference-server/frames"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(score, x0, y0, x1, y1 float64) Detection {
	return Detection{Score: score, Box: annotate.NormalizedBox{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestArea(t *testing.T) {
	assert.InDelta(t, 0.25, det(1, 0.25, 0.25, 0.75, 0.75).Area(), 1e-12)
	assert.Zero(t, det(1, 0.5, 0.5, 0.5, 0.9).Area())
}

func TestSortByScore(t *testing.T) {
	ds := []Detection{det(0.5, 0, 0, 1, 1), det(0.9, 0, 0, 1, 1), det(0.7, 0, 0, 1, 1)}
	ds[0].Label = "a"
	ds[2].Label = "c"

	SortByScore(ds)

	assert.Equal(t, []float64{0.9, 0.7, 0.5}, []float64{ds[0].Score, ds[1].Score, ds[2].Score})
	assert.Equal(t, "c", ds[1].Label)
}

func TestThreshold(t *testing.T) {
	ds := []Detection{det(0.95, 0, 0, 1, 1), det(0.9, 0, 0, 1, 1), det(0.2, 0, 0, 1, 1)}

	kept := Threshold(ds, 0.9)

	require.Len(t, kept, 1)
	assert.Equal(t, 0.95, kept[0].Score)
}

func TestIoU(t *testing.T) {
	a := det(1, 0, 0, 0.5, 0.5)

	assert.InDelta(t, 1, IoU(a, a), 1e-12)
	assert.InDelta(t, 1.0/7, IoU(a, det(1, 0.25, 0.25, 0.75, 0.75)), 1e-12)
	assert.Zero(t, IoU(a, det(1, 0.6, 0.6, 1, 1)))
	assert.Zero(t, IoU(a, det(1, 0.5, 0, 1, 0.5)), "touching boxes")
	assert.Zero(t, IoU(det(1, 0.5, 0.5, 0.5, 0.5), det(1, 0.5, 0.5, 0.5, 0.5)))
}

func TestNMS(t *testing.T) {
	ds := []Detection{
		det(0.91, 0.1, 0.1, 0.5, 0.5),
		det(0.99, 0.12, 0.1, 0.52, 0.5), // Overlaps the first one.
		det(0.95, 0.6, 0.6, 0.9, 0.9),
		det(0.93, 0.61, 0.6, 0.91, 0.9), // Overlaps the third one.
		det(0.92, 0.0, 0.6, 0.2, 0.9),
	}
	before := append([]Detection(nil), ds...)

	kept := NMS(ds, DefaultIoU)

	require.Len(t, kept, 3)
	assert.Equal(t, 0.99, kept[0].Score)
	assert.Equal(t, 0.95, kept[1].Score)
	assert.Equal(t, 0.92, kept[2].Score)
	assert.Equal(t, before, ds)

	assert.Len(t, NMS(ds, 1), len(ds), "nothing overlaps by more than 1")
	assert.Empty(t, NMS(nil, DefaultIoU))
}

func TestFromRaw(t *testing.T) {
	raw := RawOutput{
		NumClasses: 2,
		Scores: []float64{
			0.05, 0.95, // Kept.
			0.02, 0.98, // Kept, suppresses the first.
			0.5, 0.5, // Below the threshold.
			0.01, 0.99, // Kept, separate.
		},
		Boxes: []float64{
			0.1, 0.1, 0.4, 0.4,
			0.11, 0.1, 0.41, 0.4,
			0, 0, 1, 1,
			0.6, 0.6, 0.8, 0.8,
		},
	}

	ds, err := FromRaw(raw, DefaultParams())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, 0.99, ds[0].Score)
	assert.Equal(t, annotate.NormalizedBox{X0: 0.6, Y0: 0.6, X1: 0.8, Y1: 0.8}, ds[0].Box)
	assert.Equal(t, 0.98, ds[1].Score)
	assert.Equal(t, "face", ds[1].Label)

	t.Run("default classes", func(t *testing.T) {
		raw := raw
		raw.NumClasses = 0
		ds, err := FromRaw(raw, DefaultParams())
		require.NoError(t, err)
		assert.Len(t, ds, 2)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := FromRaw(RawOutput{NumClasses: 2, Scores: []float64{1}}, DefaultParams())
		assert.Error(t, err)
		_, err = FromRaw(RawOutput{NumClasses: 2, Scores: []float64{0, 1}, Boxes: []float64{0, 0, 1}},
			DefaultParams())
		assert.Error(t, err)
		p := DefaultParams()
		p.ClassIndex = 2
		_, err = FromRaw(raw, p)
		assert.Error(t, err)
	})
}

func testFrame(t *testing.T, dir string) frames.Frame {
	t.Helper()
	return frames.Frame{
		Name:  "frame_001",
		Dir:   dir,
		Image: image.NewNRGBA(image.Rect(0, 0, 200, 100)),
	}
}

func writeSidecar(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSidecarSourceYAML(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "frame_001.yaml", `
detections:
  - score: 0.8
    box: [0.1, 0.2, 0.6, 0.8]
    label: face
raw:
  num_classes: 2
  scores: [0.0, 0.97]
  boxes: [0.5, 0.5, 0.7, 0.7]
`)

	ds, err := NewSidecarSource(FormatYAML).Detections(testFrame(t, dir))
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, 0.97, ds[0].Score)
	assert.Equal(t, annotate.NormalizedBox{X0: 0.1, Y0: 0.2, X1: 0.6, Y1: 0.8}, ds[1].Box)
	assert.Equal(t, "face", ds[1].Label)
}

func TestSidecarSourceJSONAsYAML(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "frame_001.yaml",
		`{"detections": [{"score": 0.5, "box": [0, 0, 1, 1]}]}`)

	ds, err := NewSidecarSource(FormatYAML).Detections(testFrame(t, dir))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, annotate.NormalizedBox{X1: 1, Y1: 1}, ds[0].Box)
}

func TestSidecarSourceKITTI(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "frame_001.txt", ""+
		"face 0.0 0 0.0 20.00 20.00 120.00 80.00 0.0 0.0 0.0 0.0 0.0 0.0 0.0 0.750000\n"+
		"broken line\n"+
		"face 0.0 0 0.0 0 0 100 50\n")

	ds, err := NewSidecarSource(FormatKITTI).Detections(testFrame(t, dir))
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, 1.0, ds[0].Score)
	assert.Equal(t, annotate.NormalizedBox{X0: 0, Y0: 0, X1: 0.5, Y1: 0.5}, ds[0].Box)
	assert.Equal(t, 0.75, ds[1].Score)
	assert.Equal(t, annotate.PixelBox{X0: 20, Y0: 20, X1: 120, Y1: 80}, ds[1].Box.ToPixels(200, 100))
}

func TestSidecarSourceAWS(t *testing.T) {
	dir := t.TempDir()
	writeSidecar(t, dir, "frame_001.json", `{
  "Labels": [
    {"Name": "Person", "Confidence": 99.1, "Instances": [
      {"BoundingBox": {"Left": 0.1, "Top": 0.2, "Width": 0.5, "Height": 0.6}, "Confidence": 90}
    ]},
    {"Name": "Outdoors", "Confidence": 80, "Instances": []}
  ],
  "LabelModelVersion": "2.0"
}`)

	ds, err := NewSidecarSource(FormatAWS).Detections(testFrame(t, dir))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "Person", ds[0].Label)
	assert.InDelta(t, 0.9, ds[0].Score, 1e-12)
	assert.InDelta(t, 0.6, ds[0].Box.X1, 1e-12)
	assert.InDelta(t, 0.8, ds[0].Box.Y1, 1e-12)
}

func TestSidecarSourceMissingAndInvalid(t *testing.T) {
	dir := t.TempDir()

	ds, err := NewSidecarSource(FormatYAML).Detections(testFrame(t, dir))
	require.NoError(t, err)
	assert.Empty(t, ds)

	writeSidecar(t, dir, "frame_001.yaml", "detections:\n  - box: [0.1, 0.2]\n")
	_, err = NewSidecarSource(FormatYAML).Detections(testFrame(t, dir))
	assert.Error(t, err)

	writeSidecar(t, dir, "frame_001.json", "{")
	_, err = NewSidecarSource(FormatAWS).Detections(testFrame(t, dir))
	assert.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	dir := t.TempDir()
	want := []Detection{det(0.9, 0.1, 0.2, 0.3, 0.4), det(0.5, 0.5, 0.5, 0.6, 0.6)}
	want[0].Label = "face"

	require.NoError(t, WriteYAML(filepath.Join(dir, "frame_001.yaml"), want))

	got, err := NewSidecarSource(FormatYAML).Detections(testFrame(t, dir))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "kitti", "aws"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, Format(s), f)
	}
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("sloth")
	assert.Error(t, err)
}
