package decoder

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// EventBuilder turns the classified frames of one readout board into an
// EventTable. Frames must be fed in stream order; a builder is not safe for
// concurrent use.
type EventBuilder struct {
	tuning Tuning
	stream int

	events []Event
	l1a    int
	bcidT  int

	skipEvent   bool
	capped      bool
	lastMissing bool

	raws     *rawWindow
	uuids    *uuidIndex
	prevKind FrameKind
	hasPrev  bool

	headerTotal  int
	trailerTotal int
	skipped      int
	anomalies    int
	missing      []MissingEvent
	elinks       map[uint16]*ElinkReport

	finalized bool
}

// NewEventBuilder returns a builder for one stream, or an *ErrInvalidTuning
// when tuning is out of range.
func NewEventBuilder(stream int, tuning Tuning) (*EventBuilder, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	return &EventBuilder{
		tuning: tuning,
		stream: stream,
		l1a:    -1,
		bcidT:  -1,
		raws:   newRawWindow(tuning.DedupWindow),
		uuids:  newUUIDIndex(),
		elinks: make(map[uint16]*ElinkReport),
	}, nil
}

// BuildEventTable feeds every frame to a new builder and finalizes it.
func BuildEventTable(stream int, frames []Frame, tuning Tuning) (*EventTable, error) {
	builder, err := NewEventBuilder(stream, tuning)
	if err != nil {
		return nil, err
	}
	for _, frame := range frames {
		builder.Feed(frame)
	}
	return builder.Finalize(), nil
}

func (b *EventBuilder) current() *Event {
	if len(b.events) == 0 {
		return nil
	}
	return &b.events[len(b.events)-1]
}

// Feed applies one frame to the builder state.
func (b *EventBuilder) Feed(frame Frame) {
	if b.finalized {
		logger.Error(fmtStream(b.stream, "frame fed to a finalized event builder"))
		return
	}

	report, ok := b.elinks[frame.Elink]
	if !ok {
		report = &ElinkReport{}
		b.elinks[frame.Elink] = report
	}

	if frame.Kind != Trailer && frame.Kind != Filler {
		// Retransmitted words; trailers and fillers often repeat legitimately
		if b.raws.Contains(frame.RawFull) {
			return
		}
		b.raws.Push(frame.RawFull)
	}

	proceed := true
	switch frame.Kind {
	case Header:
		report.NHeader++
		b.headerTotal++
		proceed = b.feedHeader(frame)
	case Data:
		report.NHits++
		proceed = b.feedData(frame)
	case Trailer:
		report.NTrailer++
		b.feedTrailer(frame)
	}
	if proceed {
		b.prevKind = frame.Kind
		b.hasPrev = true
	}
}

func (b *EventBuilder) feedHeader(frame Frame) bool {
	l1counter := int(frame.L1Counter)
	bcid := int(frame.BCID)

	if b.lastMissing && bcid != b.bcidT {
		last := &b.missing[len(b.missing)-1]
		last.NextBCID = bcid
		last.HasNextBCID = true
		b.lastMissing = false
	}

	if l1counter == b.l1a {
		// Header of another elink for the open event
		ev := b.current()
		ev.HeaderCount++
		ev.Raw = append(ev.Raw, frame.RawFull)
		if b.skipEvent {
			if b.tuning.Verbosity > 2 {
				message := fmt.Sprintf("skipping header of discarded event, l1counter %d bcid %d", l1counter, bcid)
				logger.Info(fmtStream(b.stream, "%s", message), "builder")
			}
			return false
		}
		return true
	}

	b.capped = false
	suspicious := false
	if b.l1a >= 0 {
		step := absDiff(b.l1a, l1counter)
		if step != 1 && step != b.tuning.L1Modulus-1 {
			b.missing = append(b.missing, MissingEvent{
				L1Counter: l1counter,
				BCID:      bcid,
				Event:     len(b.events),
				Delta:     l1counter - b.l1a,
				NextBCID:  MissingBCIDSentinel,
			})
			b.lastMissing = true
			suspicious = true
		}
	}

	uuid := triggerUUID(frame.L1Counter, frame.BCID)
	if b.uuids.SeenWithin(uuid, len(b.events), b.tuning.UUIDWindow) {
		if b.tuning.Verbosity > 1 {
			logger.Info(fmtStream(b.stream, "skipping duplicate event, uuid 0x%05x", uuid), "builder")
		}
		b.skipped++
		b.skipEvent = true
		return false
	}
	b.uuids.Record(uuid)

	if !b.tuning.SkipTriggerCheck && b.isRetrigger(bcid) {
		if b.tuning.Verbosity > 1 {
			message := fmt.Sprintf("skipping retrigger, l1counter %d bcid %d previous bcid %d", l1counter, bcid, b.bcidT)
			logger.Info(fmtStream(b.stream, "%s", message), "builder")
		}
		b.skipped++
		b.skipEvent = true
		return false
	}
	b.skipEvent = false
	b.bcidT = bcid
	b.l1a = l1counter

	b.events = append(b.events, Event{
		Index:       len(b.events),
		L1Counter:   frame.L1Counter,
		HeaderCount: 1,
		BCID:        []uint16{frame.BCID},
		Raw:         []uint64{frame.RawFull},
	})
	if b.tuning.Verbosity > 3 || (suspicious && b.tuning.Verbosity > 1) {
		message := fmt.Sprintf("new event %d, l1counter %d bcid %d", len(b.events)-1, l1counter, bcid)
		logger.Info(fmtStream(b.stream, "%s", message), "builder")
	}
	return true
}

// isRetrigger reports whether bcid is too close to the last committed one
// to be a new physical trigger.
func (b *EventBuilder) isRetrigger(bcid int) bool {
	if b.bcidT < 0 || bcid == b.bcidT {
		return false
	}
	return absDiff(bcid, b.bcidT) < b.tuning.RetriggerWindow ||
		absDiff(bcid+b.tuning.BCIDModulus, b.bcidT) < b.tuning.RetriggerWrapWindow
}

func (b *EventBuilder) feedData(frame Frame) bool {
	if b.skipEvent {
		return true
	}
	ev := b.current()
	if ev == nil {
		b.anomalies++
		if b.tuning.Verbosity > 0 {
			logger.Info(fmtStream(b.stream, "data frame before any header, dropped"), "builder")
		}
		return true
	}
	if len(ev.Hits) >= b.tuning.HitCap {
		if b.tuning.Verbosity > 1 {
			message := fmt.Sprintf("event %d already has %d hits, ignoring the rest", ev.Index, len(ev.Hits))
			logger.Info(fmtStream(b.stream, "%s", message), "builder")
		}
		b.skipEvent = true
		b.capped = true
		return false
	}

	ev.Hits = append(ev.Hits, Hit{
		Row:     frame.RowID,
		Col:     frame.ColID,
		Elink:   frame.Elink,
		Payload: frame.Payload,
		Raw:     frame.RawFull,
	})
	if p, ok := frame.Payload.(CounterAPayload); ok {
		ev.BCID = append(ev.BCID, p.BCID)
	}
	return true
}

func (b *EventBuilder) feedTrailer(frame Frame) {
	// Trailers of consecutive elinks close the same event once
	if b.hasPrev && b.prevKind == Trailer {
		return
	}
	b.trailerTotal++
	if b.skipEvent && !b.capped {
		return
	}
	ev := b.current()
	if ev == nil {
		b.anomalies++
		if b.tuning.Verbosity > 0 {
			logger.Info(fmtStream(b.stream, "data stream started with a trailer"), "builder")
		}
		return
	}
	ev.TrailerCount++
	for i := ev.chipped; i < len(ev.Hits); i++ {
		ev.Hits[i].ChipID = frame.ChipID
	}
	ev.chipped = len(ev.Hits)
	ev.TrailerHits = append(ev.TrailerHits, frame.Hits)
	ev.CRC = append(ev.CRC, frame.CRC)
	ev.Raw = append(ev.Raw, frame.Raw)
}

// Finalize closes the stream and returns its table. The builder accepts no
// more frames afterwards.
func (b *EventBuilder) Finalize() *EventTable {
	b.finalized = true

	elinks := make(map[uint16]ElinkReport, len(b.elinks))
	for elink, report := range b.elinks {
		elinks[elink] = *report
	}
	table := &EventTable{
		Stream: b.stream,
		Events: b.events,
		Diagnostics: Diagnostics{
			HeaderTotal:  b.headerTotal,
			TrailerTotal: b.trailerTotal,
			Skipped:      b.skipped,
			Anomalies:    b.anomalies,
			Missing:      b.missing,
			Elinks:       elinks,
		},
	}
	if table.Events == nil {
		table.Events = []Event{}
	}
	if b.tuning.Verbosity > 0 {
		logTableSummary(table)
	}
	return table
}

func logTableSummary(table *EventTable) {
	diag := table.Diagnostics
	stream := table.Stream
	logger.Info(fmtStream(stream, "done with %d events", table.Len()), "builder")
	if diag.Consistent() {
		logger.Info(fmtStream(stream, "found same number of headers and trailers: %d", diag.HeaderTotal), "builder")
	} else {
		logger.Error(fmtStream(stream, "found %d headers and %d trailers, please check", diag.HeaderTotal, diag.TrailerTotal))
	}
	logger.Info(fmtStream(stream, "found %d missing events (irregular increase of l1counter)", len(diag.Missing)), "builder")
	for _, m := range diag.Missing {
		entry := fmt.Sprintf("[%d %d %d %d %d]", m.L1Counter, m.BCID, m.Event, m.Delta, m.NextBCID)
		if m.DeadTime() {
			logger.Info(fmtStream(stream, "expected issue because of missing L1A dead time: %s", entry), "builder")
		} else {
			logger.Info(fmtStream(stream, "missing l1counter: %s", entry), "builder")
		}
	}
	logger.Info(fmtStream(stream, "total expected events is %d", table.ExpectedEvents()), "builder")
	logger.Info(fmtStream(stream, "skipped %d duplicate or retriggered events", diag.Skipped), "builder")

	for _, elink := range SortedElinks(diag.Elinks) {
		r := diag.Elinks[elink]
		message := fmt.Sprintf("elink %d: nheader %d, nhits %d, ntrailer %d", elink, r.NHeader, r.NHits, r.NTrailer)
		logger.Info(fmtStream(stream, "%s", message), "builder")
	}
}

func SortedElinks(reports map[uint16]ElinkReport) []uint16 {
	elinks := make([]uint16, 0, len(reports))
	for elink := range reports {
		elinks = append(elinks, elink)
	}
	slices.Sort(elinks)
	return elinks
}
