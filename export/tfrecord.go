// Package export writes annotated images as TFRecord object detection examples.
package export

// TFRecord object detection specific functionality.

import (
	"fmt"
	"io"
	"os"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// FeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type FeatureMap map[string]interface{}

// Record is an image with the boxes of its objects, all of the same label.
type Record struct {
	Path  string // The image file.
	Label string
	Boxes []annotate.NormalizedBox
}

// Features converts the record to the feature map of an object detection example. The image is
// read from r.Path.
func Features(r Record, labels *LabelMap) (FeatureMap, error) {
	// Get the image width and height.
	img, format, err := annotate.DecodeImageConfig(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	// Read the image data.
	imgData, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	// Prepare the feature map for the per file data.
	f := make(FeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = r.Path
	f["image/source_id"] = r.Path
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per box data. The corners are ordered, TensorFlow expects min <= max.
	numBoxes := len(r.Boxes)
	xmins := make([]float32, numBoxes)
	ymins := make([]float32, numBoxes)
	xmaxs := make([]float32, numBoxes)
	ymaxs := make([]float32, numBoxes)
	classes := make([]string, numBoxes)
	classIDs := make([]int64, numBoxes)
	for i, b := range r.Boxes {
		xmins[i] = float32(min(b.X0, b.X1))
		ymins[i] = float32(min(b.Y0, b.Y1))
		xmaxs[i] = float32(max(b.X0, b.X1))
		ymaxs[i] = float32(max(b.Y0, b.Y1))
		classes[i] = r.Label
		classIDs[i] = int64(labels.ID(r.Label))
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// AppendTFRecord converts the records to examples and appends them to the TFRecord file at path,
// creating it if missing.
func AppendTFRecord(path string, labels *LabelMap, records ...Record) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	// Convert all records before touching the file.
	examples := make([]*tensorflow.Example, 0, len(records))
	for _, r := range records {
		f, err := Features(r, labels)
		if err != nil {
			return fmt.Errorf("failed to convert %q: %v", r.Path, err)
		}
		examples = append(examples, example.New(f))
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %q: %v", path, err)
	}
	defer annotate.CloseWithErrCheck(file, &err)

	for _, e := range examples {
		if err := writeTFRecordExample(file, e); err != nil {
			return fmt.Errorf("failed to write example: %v", err)
		}
	}

	return nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}
