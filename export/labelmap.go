package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foghegehog/inference-server/annotate"
	"github.com/golang/protobuf/proto"
)

// DefaultLabelMapPath is the label map kept next to the TFRecord file at recordPath: the record
// path with its extension replaced by ".pbtxt".
func DefaultLabelMapPath(recordPath string) string {
	return strings.TrimSuffix(recordPath, filepath.Ext(recordPath)) + ".pbtxt"
}

// LabelMap assigns class IDs to labels. IDs start at 1 and are assigned in first-seen order.
type LabelMap struct {
	ids    map[string]int32
	nextID int32
}

// NewLabelMap returns an empty label map.
func NewLabelMap() *LabelMap {
	return &LabelMap{ids: make(map[string]int32), nextID: 1}
}

// ID returns the ID of label, assigning a new one if no mapping exists.
func (m *LabelMap) ID(label string) int32 {
	id, ok := m.ids[label]
	if !ok {
		id = m.nextID
		m.ids[label] = id
		m.nextID++
	}
	return id
}

// Len is the number of mappings.
func (m *LabelMap) Len() int {
	return len(m.ids)
}

// Labels returns the mapped labels ordered by ID.
func (m *LabelMap) Labels() []string {
	labels := make([]string, 0, len(m.ids))
	for k := range m.ids {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool { return m.ids[labels[i]] < m.ids[labels[j]] })
	return labels
}

// Save converts the label map to prototxt format and writes it to path.
func (m *LabelMap) Save(path string) (err error) {
	// Copy the label map into the protobuf structure.
	siLabelMap := &StringIntLabelMap{}
	siLabelMap.Item = make([]*StringIntLabelMapItem, 0, len(m.ids))
	for _, label := range m.Labels() {
		siLabelMap.Item = append(siLabelMap.Item, &StringIntLabelMapItem{
			Name: proto.String(label),
			Id:   proto.Int32(m.ids[label]),
		})
	}

	// Write the label map.
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer annotate.CloseWithErrCheck(file, &err)

	if err := proto.MarshalText(file, siLabelMap); err != nil {
		return fmt.Errorf("failed to write the label map %q: %v", path, err)
	}

	return nil
}

// LoadLabelMap loads a label map in prototxt format. New labels are given IDs above the largest
// ID in the file.
//
// If an error occurs because the file does not exist, then os.IsNotExist will return true for the
// error.
func LoadLabelMap(path string) (*LabelMap, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var siLabelMap StringIntLabelMap
	if err := proto.UnmarshalText(string(text), &siLabelMap); err != nil {
		return nil, fmt.Errorf("failed to parse the label map %q: %v", path, err)
	}

	m := NewLabelMap()
	for _, item := range siLabelMap.GetItem() {
		k, v := item.GetName(), item.GetId()
		if k == "" || v <= 0 {
			return nil, fmt.Errorf("invalid entry in %q: %s: %d", path, k, v)
		}

		m.ids[k] = v
		if v >= m.nextID {
			m.nextID = v + 1
		}
	}

	return m, nil
}
