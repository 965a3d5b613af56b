package decoder

type Hit struct {
	Row     uint8
	Col     uint8
	Elink   uint16
	ChipID  uint32
	Payload Payload
	Raw     uint64
}

// Event is one trigger as seen by one readout board.
type Event struct {
	Index        int
	L1Counter    uint8
	HeaderCount  int
	TrailerCount int
	// BCID of the header, followed by the bcid of every counter_a hit
	BCID        []uint16
	Hits        []Hit
	TrailerHits []uint16
	CRC         []uint16
	Raw         []uint64

	// hits before this position already carry their chip id
	chipped int
}

func (e *Event) NHits() int {
	return len(e.Hits)
}

// NHitsTrailer is the sum of the hit counts reported by the trailers.
func (e *Event) NHitsTrailer() int {
	total := 0
	for _, n := range e.TrailerHits {
		total += int(n)
	}
	return total
}

// MissingBCIDSentinel marks a missing-event entry that never saw a later
// header with a different bcid.
// TODO: confirm with the DAQ group what downstream code expects here.
const MissingBCIDSentinel = -9999

// MissingEvent records an irregular step of the l1 counter.
type MissingEvent struct {
	L1Counter   int
	BCID        int
	Event       int
	Delta       int
	NextBCID    int
	HasNextBCID bool
}

// DeadTime reports whether the gap is explained by the L1A dead time.
func (m MissingEvent) DeadTime() bool {
	return m.NextBCID-m.BCID < 7
}

type ElinkReport struct {
	NHeader  int
	NHits    int
	NTrailer int
}

type Diagnostics struct {
	HeaderTotal  int
	TrailerTotal int
	Skipped      int
	Anomalies    int
	Missing      []MissingEvent
	Elinks       map[uint16]ElinkReport
}

func (d Diagnostics) Consistent() bool {
	return d.HeaderTotal == d.TrailerTotal
}

// EventTable is the finalized output of one stream. It must not be
// modified once returned by the builder.
type EventTable struct {
	Stream      int
	Events      []Event
	Diagnostics Diagnostics
}

func (t *EventTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// ExpectedEvents is the number of events plus the ones flagged as missing.
func (t *EventTable) ExpectedEvents() int {
	return t.Len() + len(t.Diagnostics.Missing)
}
