package decoder

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed dataformat/etroc2.yaml
var defaultDataFormat []byte

type FieldDef struct {
	Shift uint   `yaml:"shift"`
	Mask  uint64 `yaml:"mask"`
}

func (f FieldDef) extract(raw uint64) uint64 {
	return (raw >> f.Shift) & f.Mask
}

func (f FieldDef) insert(value uint64) uint64 {
	return (value & f.Mask) << f.Shift
}

type KindIdentifier struct {
	Kind    string `yaml:"kind"`
	Mask    uint64 `yaml:"mask"`
	Pattern uint64 `yaml:"pattern"`
}

// DataFormat describes how raw frames are recognised and unpacked.
type DataFormat struct {
	Name        string                         `yaml:"name"`
	Identifiers []KindIdentifier               `yaml:"identifiers"`
	Fields      map[string]map[string]FieldDef `yaml:"fields"`
	Payloads    map[string]map[string]FieldDef `yaml:"payloads"`
}

func ParseDataFormat(data []byte) (DataFormat, error) {
	var format DataFormat
	if err := yaml.Unmarshal(data, &format); err != nil {
		return format, fmt.Errorf("error parsing data format: %w", err)
	}
	if len(format.Identifiers) == 0 {
		return format, fmt.Errorf("data format %q has no identifiers", format.Name)
	}
	for _, id := range format.Identifiers {
		if _, ok := parseFrameKind(id.Kind); !ok {
			return format, fmt.Errorf("data format %q: unknown kind %q", format.Name, id.Kind)
		}
	}
	return format, nil
}

func LoadDataFormat(filename string) (DataFormat, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return DataFormat{}, &ErrOpenFile{Filename: filename, Err: err}
	}
	return ParseDataFormat(data)
}

func DefaultDataFormat() DataFormat {
	format, err := ParseDataFormat(defaultDataFormat)
	if err != nil {
		panic(err)
	}
	return format
}

type kindMatcher struct {
	kind    FrameKind
	mask    uint64
	pattern uint64
}

// FormatClassifier classifies frames with a DataFormat. Data frames are
// unpacked with the payload of the configured board mode.
type FormatClassifier struct {
	format   DataFormat
	mode     PayloadMode
	matchers []kindMatcher
	payload  map[string]FieldDef
}

func NewFormatClassifier(format DataFormat, mode PayloadMode) (*FormatClassifier, error) {
	c := &FormatClassifier{format: format, mode: mode}
	for _, id := range format.Identifiers {
		kind, ok := parseFrameKind(id.Kind)
		if !ok {
			return nil, fmt.Errorf("data format %q: unknown kind %q", format.Name, id.Kind)
		}
		c.matchers = append(c.matchers, kindMatcher{kind: kind, mask: id.Mask, pattern: id.Pattern})
	}
	payload, ok := format.Payloads[mode.String()]
	if !ok {
		return nil, fmt.Errorf("data format %q has no %v payload", format.Name, mode)
	}
	c.payload = payload
	return c, nil
}

func (c *FormatClassifier) Mode() PayloadMode {
	return c.mode
}

func (c *FormatClassifier) Classify(raw uint64) (Frame, error) {
	for _, m := range c.matchers {
		if raw&m.mask != m.pattern {
			continue
		}
		fields := FieldMap{"raw_full": raw}
		for name, def := range c.format.Fields[m.kind.String()] {
			fields[name] = def.extract(raw)
		}
		if m.kind == Data {
			for name, def := range c.payload {
				fields[name] = def.extract(raw)
			}
		}
		return FrameFromFields(m.kind, fields)
	}
	return Frame{}, &ErrUnknownFrame{Raw: raw}
}

// Pack encodes a frame with the data format. It is the inverse of Classify
// for every field the format describes.
func (c *FormatClassifier) Pack(frame Frame) (uint64, error) {
	var identifier *kindMatcher
	for i := range c.matchers {
		if c.matchers[i].kind == frame.Kind {
			identifier = &c.matchers[i]
			break
		}
	}
	if identifier == nil {
		return 0, fmt.Errorf("data format %q has no %v identifier", c.format.Name, frame.Kind)
	}

	values := FieldMap{"elink": uint64(frame.Elink)}
	switch frame.Kind {
	case Header, Filler:
		values["l1counter"] = uint64(frame.L1Counter)
		values["bcid"] = uint64(frame.BCID)
	case Data:
		values["row_id"] = uint64(frame.RowID)
		values["col_id"] = uint64(frame.ColID)
		switch p := frame.Payload.(type) {
		case TimingPayload:
			values["tot"] = uint64(p.TOT)
			values["toa"] = uint64(p.TOA)
			values["cal"] = uint64(p.Cal)
		case CounterAPayload:
			values["bcid"] = uint64(p.BCID)
			values["counter_a"] = uint64(p.Counter)
		case CounterBPayload:
			values["counter_b"] = uint64(p.Counter)
		}
	case Trailer:
		values["chipid"] = uint64(frame.ChipID)
		values["hits"] = uint64(frame.Hits)
		values["crc"] = uint64(frame.CRC)
	}

	raw := identifier.pattern
	for name, def := range c.format.Fields[frame.Kind.String()] {
		raw |= def.insert(values[name])
	}
	if frame.Kind == Data {
		for name, def := range c.payload {
			raw |= def.insert(values[name])
		}
	}
	return raw, nil
}

// ClassifierFromConfig builds the classifier for a run: the data format of
// the configuration, or the embedded one, unpacking payloads of mode.
func ClassifierFromConfig(cfg Configuration, mode BoardMode) (*FormatClassifier, error) {
	format := DefaultDataFormat()
	if cfg.DataFormat != "" {
		var err error
		format, err = LoadDataFormat(cfg.DataFormat)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Verbosity > 0 {
		message := fmt.Sprintf("Using data format %s with %v payloads", format.Name, mode)
		logger.Info(message, "classifier")
	}
	return NewFormatClassifier(format, mode.Code)
}
