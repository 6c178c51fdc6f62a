package drm

// Property names staged by the presentation paths.
const (
	PropFBID          = "FB_ID"
	PropCrtcID        = "CRTC_ID"
	PropSrcX          = "SRC_X"
	PropSrcY          = "SRC_Y"
	PropSrcW          = "SRC_W"
	PropSrcH          = "SRC_H"
	PropCrtcX         = "CRTC_X"
	PropCrtcY         = "CRTC_Y"
	PropCrtcW         = "CRTC_W"
	PropCrtcH         = "CRTC_H"
	PropColorEncoding = "COLOR_ENCODING"
	PropColorRange    = "COLOR_RANGE"
	PropColorspace    = "Colorspace"
	PropHDRMetadata   = "HDR_OUTPUT_METADATA"
)

// Object is a KMS plane, connector or CRTC with its property table.
type Object interface {
	ID() uint32
	SupportsProperty(name string) bool
	// PropertyValue resolves a symbolic enum entry of property name to its raw value.
	PropertyValue(name, entry string) (uint64, bool)
}

// Property is one entry of an object's property table.
type Property struct {
	ID uint32
	// Enums maps enum entry names to values; nil for range and blob properties.
	Enums map[string]uint64
}

// ModeObject is an Object whose property table was read from the kernel by
// the windowing layer.
type ModeObject struct {
	ObjectID   uint32
	Properties map[string]Property
}

// NewModeObject creates an object with an empty property table.
func NewModeObject(id uint32) *ModeObject {
	return &ModeObject{ObjectID: id, Properties: make(map[string]Property)}
}

// WithProperty adds a property, returning the object for chaining.
func (o *ModeObject) WithProperty(name string, enums map[string]uint64) *ModeObject {
	o.Properties[name] = Property{ID: uint32(len(o.Properties) + 1), Enums: enums}
	return o
}

func (o *ModeObject) ID() uint32 { return o.ObjectID }

func (o *ModeObject) SupportsProperty(name string) bool {
	_, ok := o.Properties[name]
	return ok
}

func (o *ModeObject) PropertyValue(name, entry string) (uint64, bool) {
	p, ok := o.Properties[name]
	if !ok || p.Enums == nil {
		return 0, false
	}
	v, ok := p.Enums[entry]
	return v, ok
}
