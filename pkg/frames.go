package decoder

type FrameKind int

const (
	Filler FrameKind = iota
	Header
	Data
	Trailer
)

var frameKindStrings = []string{
	"filler",
	"header",
	"data",
	"trailer",
}

func (k FrameKind) String() string {
	if k < Filler || k > Trailer {
		return "unknown"
	}
	return frameKindStrings[k]
}

func parseFrameKind(s string) (FrameKind, bool) {
	for i, v := range frameKindStrings {
		if v == s {
			return FrameKind(i), true
		}
	}
	return Filler, false
}

// Payload is the measurement carried by a data frame. The concrete type
// depends on the operating mode of the readout board.
type Payload interface {
	Mode() PayloadMode
}

type TimingPayload struct {
	TOT uint16
	TOA uint16
	Cal uint16
}

type CounterAPayload struct {
	BCID    uint16
	Counter uint32
}

type CounterBPayload struct {
	Counter uint32
}

func (TimingPayload) Mode() PayloadMode   { return TimingMode }
func (CounterAPayload) Mode() PayloadMode { return CounterAMode }
func (CounterBPayload) Mode() PayloadMode { return CounterBMode }

// Frame is a classified 64-bit readout frame. Only the fields of its kind
// are meaningful.
type Frame struct {
	Kind    FrameKind
	Elink   uint16
	RawFull uint64

	// Header
	L1Counter uint8
	BCID      uint16

	// Data
	RowID   uint8
	ColID   uint8
	Payload Payload

	// Trailer
	ChipID uint32
	CRC    uint16
	Hits   uint16
	Raw    uint64
}

// FieldMap is the key/value view of a frame produced by field-oriented
// classifiers.
type FieldMap map[string]uint64

var requiredFields = map[FrameKind][]string{
	Header:  {"elink", "l1counter", "bcid", "raw_full"},
	Data:    {"elink", "row_id", "col_id", "raw_full"},
	Trailer: {"chipid", "crc", "hits", "raw", "raw_full"},
	Filler:  {},
}

// FrameFromFields builds a Frame from a classifier field map.
func FrameFromFields(kind FrameKind, fields FieldMap) (Frame, error) {
	for _, name := range requiredFields[kind] {
		if _, ok := fields[name]; !ok {
			return Frame{}, &ErrMissingField{Kind: kind, Field: name}
		}
	}

	frame := Frame{
		Kind:    kind,
		Elink:   uint16(fields["elink"]),
		RawFull: fields["raw_full"],
	}
	switch kind {
	case Header:
		frame.L1Counter = uint8(fields["l1counter"])
		frame.BCID = uint16(fields["bcid"])
	case Data:
		frame.RowID = uint8(fields["row_id"])
		frame.ColID = uint8(fields["col_id"])
		payload, err := payloadFromFields(fields)
		if err != nil {
			return Frame{}, err
		}
		frame.Payload = payload
	case Trailer:
		frame.ChipID = uint32(fields["chipid"])
		frame.CRC = uint16(fields["crc"])
		frame.Hits = uint16(fields["hits"])
		frame.Raw = fields["raw"]
	}
	return frame, nil
}

func payloadFromFields(fields FieldMap) (Payload, error) {
	if tot, ok := fields["tot"]; ok {
		for _, name := range []string{"toa", "cal"} {
			if _, ok := fields[name]; !ok {
				return nil, &ErrMissingField{Kind: Data, Field: name}
			}
		}
		return TimingPayload{TOT: uint16(tot), TOA: uint16(fields["toa"]), Cal: uint16(fields["cal"])}, nil
	}
	if counter, ok := fields["counter_a"]; ok {
		if _, ok := fields["bcid"]; !ok {
			return nil, &ErrMissingField{Kind: Data, Field: "bcid"}
		}
		return CounterAPayload{BCID: uint16(fields["bcid"]), Counter: uint32(counter)}, nil
	}
	if counter, ok := fields["counter_b"]; ok {
		return CounterBPayload{Counter: uint32(counter)}, nil
	}
	return nil, &ErrMissingField{Kind: Data, Field: "tot"}
}

type Classifier interface {
	Classify(raw uint64) (Frame, error)
}

type ClassifierFunc func(raw uint64) (Frame, error)

func (f ClassifierFunc) Classify(raw uint64) (Frame, error) {
	return f(raw)
}

// FieldMapClassifier adapts a classifier that reports frames as a kind and
// a field map.
type FieldMapClassifier func(raw uint64) (FrameKind, FieldMap, error)

func (f FieldMapClassifier) Classify(raw uint64) (Frame, error) {
	kind, fields, err := f(raw)
	if err != nil {
		return Frame{}, err
	}
	return FrameFromFields(kind, fields)
}
