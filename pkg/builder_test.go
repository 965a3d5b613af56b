package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, frames []Frame, tuning Tuning) *EventTable {
	t.Helper()
	table, err := BuildEventTable(0, frames, tuning)
	require.NoError(t, err)
	return table
}

func TestBuilderEmptyInput(t *testing.T) {
	table := build(t, nil, testTuning())
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.NotNil(t, table.Events)
	assert.Empty(t, table.Diagnostics.Missing)
	assert.True(t, table.Diagnostics.Consistent())
}

func TestBuilderSingleEvent(t *testing.T) {
	f := newFrameBuilder(t)
	table := build(t, f.event(7, 123, 3), testTuning())

	require.Equal(t, 1, table.Len())
	ev := table.Events[0]
	assert.Equal(t, 0, ev.Index)
	assert.Equal(t, uint8(7), ev.L1Counter)
	assert.Equal(t, []uint16{123}, ev.BCID)
	assert.Equal(t, 3, ev.NHits())
	assert.Equal(t, 3, ev.NHitsTrailer())
	assert.Equal(t, 1, ev.HeaderCount)
	assert.Equal(t, 1, ev.TrailerCount)
	for _, hit := range ev.Hits {
		assert.Equal(t, uint32(1), hit.ChipID)
	}
	assert.Equal(t, ElinkReport{NHeader: 1, NHits: 3, NTrailer: 1}, table.Diagnostics.Elinks[0])
}

func TestBuilderContinuityWrap(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(254, 100, 1)...)
	frames = append(frames, f.event(255, 600, 1)...)
	frames = append(frames, f.event(0, 1100, 1)...)
	frames = append(frames, f.event(1, 1600, 1)...)

	table := build(t, frames, testTuning())
	assert.Equal(t, 4, table.Len())
	assert.Empty(t, table.Diagnostics.Missing)
}

func TestBuilderContinuityFullWrap(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	for i := 0; i < 258; i++ {
		// bcid steps far enough apart to never look like a retrigger
		bcid := uint16(i * 577 % 3564)
		frames = append(frames, f.event(uint8(i%256), bcid, 1)...)
	}

	table := build(t, frames, DefaultTuning())
	assert.Equal(t, 258, table.Len())
	assert.Empty(t, table.Diagnostics.Missing)
	assert.Equal(t, 0, table.Diagnostics.Skipped)
	assert.Equal(t, 0, table.Diagnostics.Anomalies)
	assert.Equal(t, uint8(1), table.Events[257].L1Counter)
}

func TestBuilderRejectsInvalidTuning(t *testing.T) {
	f := newFrameBuilder(t)
	_, err := BuildEventTable(0, f.event(1, 100, 1), Tuning{})
	var tuningErr *ErrInvalidTuning
	require.True(t, errors.As(err, &tuningErr))
	assert.Equal(t, "dedup_window", tuningErr.Name)

	tuning := DefaultTuning()
	tuning.BCIDModulus = 0
	_, err = NewEventBuilder(0, tuning)
	require.True(t, errors.As(err, &tuningErr))
	assert.Equal(t, "bcid_modulus", tuningErr.Name)
}

func TestBuilderMissingEvent(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(0, 100, 1)...)
	frames = append(frames, f.event(1, 600, 1)...)
	frames = append(frames, f.event(3, 1100, 1)...)

	table := build(t, frames, testTuning())
	assert.Equal(t, 3, table.Len())
	require.Len(t, table.Diagnostics.Missing, 1)
	missing := table.Diagnostics.Missing[0]
	assert.Equal(t, 3, missing.L1Counter)
	assert.Equal(t, 1100, missing.BCID)
	assert.Equal(t, 2, missing.Event)
	assert.Equal(t, 2, missing.Delta)
	assert.Equal(t, MissingBCIDSentinel, missing.NextBCID)
	assert.False(t, missing.HasNextBCID)
	assert.True(t, missing.DeadTime())
	assert.Equal(t, 4, table.ExpectedEvents())
}

func TestBuilderMissingEventNextBCID(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(0, 100, 1)...)
	frames = append(frames, f.event(2, 600, 1)...)
	frames = append(frames, f.event(3, 603, 1)...)

	table := build(t, frames, testTuning())
	require.Len(t, table.Diagnostics.Missing, 1)
	missing := table.Diagnostics.Missing[0]
	assert.True(t, missing.HasNextBCID)
	assert.Equal(t, 603, missing.NextBCID)
	assert.True(t, missing.DeadTime())
}

func TestBuilderDuplicateInsideWindow(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(5, 100, 1)...)
	frames = append(frames, f.event(6, 600, 1)...)
	// same trigger seen again on another elink, so the raw words differ
	frames = append(frames, f.header(1, 5, 100), f.hit(1, 3, 3, 9), f.trailer(1, 2, 1))

	table := build(t, frames, testTuning())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 1, table.Diagnostics.Skipped)
	assert.Equal(t, 1, table.Events[1].NHits())
}

func TestBuilderDuplicateOutsideWindow(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	for i := 0; i < 160; i++ {
		frames = append(frames, f.event(uint8(i), uint16(i*7+1), 1)...)
	}
	frames = append(frames, f.event(0, 1, 1)...)

	table := build(t, frames, testTuning())
	assert.Equal(t, 161, table.Len())
	assert.Equal(t, 0, table.Diagnostics.Skipped)
	for i, ev := range table.Events {
		assert.Equal(t, i, ev.Index)
	}
}

func TestBuilderRetrigger(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(1, 100, 1)...)
	frames = append(frames, f.event(2, 180, 1)...)

	tuning := DefaultTuning()
	table := build(t, frames, tuning)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Diagnostics.Skipped)

	tuning.SkipTriggerCheck = true
	table = build(t, frames, tuning)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 0, table.Diagnostics.Skipped)
}

func TestBuilderRetriggerAcrossOrbit(t *testing.T) {
	f := newFrameBuilder(t)
	var frames []Frame
	frames = append(frames, f.event(1, 3550, 1)...)
	frames = append(frames, f.event(2, 10, 1)...)

	table := build(t, frames, DefaultTuning())
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Diagnostics.Skipped)
}

func TestBuilderHitCap(t *testing.T) {
	f := newFrameBuilder(t)
	frames := f.event(1, 100, 300)

	builder, err := NewEventBuilder(0, testTuning())
	require.NoError(t, err)
	for _, frame := range frames[:len(frames)-1] {
		builder.Feed(frame)
	}
	assert.True(t, builder.skipEvent)
	builder.Feed(frames[len(frames)-1])
	table := builder.Finalize()

	require.Equal(t, 1, table.Len())
	ev := table.Events[0]
	assert.Equal(t, 256, ev.NHits())
	assert.Equal(t, 1, ev.TrailerCount)
	assert.Equal(t, uint32(1), ev.Hits[255].ChipID)
	assert.Equal(t, 300, table.Diagnostics.Elinks[0].NHits)
}

func TestBuilderCapResetByNextEvent(t *testing.T) {
	f := newFrameBuilder(t)
	frames := f.event(1, 100, 260)
	frames = append(frames, f.event(2, 600, 2)...)

	table := build(t, frames, testTuning())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 256, table.Events[0].NHits())
	assert.Equal(t, 2, table.Events[1].NHits())
}

func TestBuilderTrailerFirst(t *testing.T) {
	f := newFrameBuilder(t)
	frames := []Frame{f.trailer(0, 1, 0)}
	frames = append(frames, f.event(1, 100, 1)...)

	table := build(t, frames, testTuning())
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Diagnostics.Anomalies)
	assert.Equal(t, 2, table.Diagnostics.TrailerTotal)
	assert.Equal(t, 1, table.Events[0].TrailerCount)
}

func TestBuilderDataBeforeHeader(t *testing.T) {
	f := newFrameBuilder(t)
	frames := []Frame{f.hit(0, 1, 1, 5)}
	frames = append(frames, f.event(1, 100, 1)...)

	table := build(t, frames, testTuning())
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Diagnostics.Anomalies)
	assert.Equal(t, 1, table.Events[0].NHits())
}

func TestBuilderMultipleElinks(t *testing.T) {
	f := newFrameBuilder(t)
	frames := []Frame{
		f.header(0, 1, 100), f.hit(0, 1, 1, 1), f.hit(0, 2, 2, 2), f.trailer(0, 11, 2),
		f.header(1, 1, 100), f.hit(1, 3, 3, 3), f.trailer(1, 12, 1),
	}

	table := build(t, frames, testTuning())
	require.Equal(t, 1, table.Len())
	ev := table.Events[0]
	assert.Equal(t, 2, ev.HeaderCount)
	assert.Equal(t, 2, ev.TrailerCount)
	assert.Equal(t, []uint16{2, 1}, ev.TrailerHits)
	chips := []uint32{ev.Hits[0].ChipID, ev.Hits[1].ChipID, ev.Hits[2].ChipID}
	assert.Equal(t, []uint32{11, 11, 12}, chips)
	assert.Len(t, ev.Raw, 4)
	assert.Equal(t, []uint16{0, 1}, SortedElinks(table.Diagnostics.Elinks))
}

func TestBuilderCoalescedTrailers(t *testing.T) {
	f := newFrameBuilder(t)
	frames := []Frame{
		f.header(0, 1, 100), f.hit(0, 1, 1, 1), f.trailer(0, 11, 1), f.trailer(1, 12, 0),
	}

	table := build(t, frames, testTuning())
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Events[0].TrailerCount)
	assert.Equal(t, 1, table.Diagnostics.TrailerTotal)
	assert.True(t, table.Diagnostics.Consistent())
	assert.Equal(t, 1, table.Diagnostics.Elinks[1].NTrailer)
}

func TestBuilderRepeatedWordDropped(t *testing.T) {
	f := newFrameBuilder(t)
	hit := f.hit(0, 4, 4, 44)
	frames := []Frame{f.header(0, 1, 100), hit, hit, f.trailer(0, 1, 1)}

	table := build(t, frames, testTuning())
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1, table.Events[0].NHits())
}

func TestBuilderCounterABCIDs(t *testing.T) {
	classifier := newTestClassifier(t, CounterAMode)
	pack := func(frame Frame) Frame {
		raw, err := classifier.Pack(frame)
		require.NoError(t, err)
		out, err := classifier.Classify(raw)
		require.NoError(t, err)
		return out
	}
	frames := []Frame{
		pack(Frame{Kind: Header, L1Counter: 1, BCID: 100}),
		pack(Frame{Kind: Data, RowID: 1, Payload: CounterAPayload{BCID: 101, Counter: 5}}),
		pack(Frame{Kind: Data, RowID: 2, Payload: CounterAPayload{BCID: 102, Counter: 6}}),
		pack(Frame{Kind: Trailer, ChipID: 1, Hits: 2}),
	}

	table := build(t, frames, testTuning())
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []uint16{100, 101, 102}, table.Events[0].BCID)
}

func TestBuilderFinalizedIgnoresFrames(t *testing.T) {
	f := newFrameBuilder(t)
	builder, err := NewEventBuilder(0, testTuning())
	require.NoError(t, err)
	for _, frame := range f.event(1, 100, 1) {
		builder.Feed(frame)
	}
	table := builder.Finalize()
	builder.Feed(f.header(0, 2, 600))
	assert.Equal(t, 1, table.Len())
}
