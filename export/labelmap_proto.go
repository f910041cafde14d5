package export

// Messages of object_detection/protos/string_int_label_map.proto.

import "github.com/golang/protobuf/proto"

// StringIntLabelMapItem maps a label name to a class id.
type StringIntLabelMapItem struct {
	// String name. The most common practice is to set this to a MID or synsets id.
	Name *string `protobuf:"bytes,1,opt,name=name" json:"name,omitempty"`
	// Integer id that maps to the string name above. Label ids should start from 1.
	Id *int32 `protobuf:"varint,2,opt,name=id" json:"id,omitempty"`
	// Human readable string label.
	DisplayName          *string  `protobuf:"bytes,3,opt,name=display_name,json=displayName" json:"display_name,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *StringIntLabelMapItem) Reset()         { *m = StringIntLabelMapItem{} }
func (m *StringIntLabelMapItem) String() string { return proto.CompactTextString(m) }
func (*StringIntLabelMapItem) ProtoMessage()    {}

func (m *StringIntLabelMapItem) GetName() string {
	if m != nil && m.Name != nil {
		return *m.Name
	}
	return ""
}

func (m *StringIntLabelMapItem) GetId() int32 {
	if m != nil && m.Id != nil {
		return *m.Id
	}
	return 0
}

func (m *StringIntLabelMapItem) GetDisplayName() string {
	if m != nil && m.DisplayName != nil {
		return *m.DisplayName
	}
	return ""
}

// StringIntLabelMap is the label map of an object detection dataset.
type StringIntLabelMap struct {
	Item                 []*StringIntLabelMapItem `protobuf:"bytes,1,rep,name=item" json:"item,omitempty"`
	XXX_NoUnkeyedLiteral struct{}                 `json:"-"`
	XXX_unrecognized     []byte                   `json:"-"`
	XXX_sizecache        int32                    `json:"-"`
}

func (m *StringIntLabelMap) Reset()         { *m = StringIntLabelMap{} }
func (m *StringIntLabelMap) String() string { return proto.CompactTextString(m) }
func (*StringIntLabelMap) ProtoMessage()    {}

func (m *StringIntLabelMap) GetItem() []*StringIntLabelMapItem {
	if m != nil {
		return m.Item
	}
	return nil
}
