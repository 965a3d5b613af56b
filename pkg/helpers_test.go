package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T, mode PayloadMode) *FormatClassifier {
	t.Helper()
	classifier, err := NewFormatClassifier(DefaultDataFormat(), mode)
	require.NoError(t, err)
	return classifier
}

// frameBuilder produces frames the way they come out of the classifier, so
// RawFull is the real packed word.
type frameBuilder struct {
	t          *testing.T
	classifier *FormatClassifier
}

func newFrameBuilder(t *testing.T) *frameBuilder {
	return &frameBuilder{t: t, classifier: newTestClassifier(t, TimingMode)}
}

func (f *frameBuilder) roundTrip(frame Frame) Frame {
	f.t.Helper()
	raw, err := f.classifier.Pack(frame)
	require.NoError(f.t, err)
	out, err := f.classifier.Classify(raw)
	require.NoError(f.t, err)
	require.Equal(f.t, frame.Kind, out.Kind)
	return out
}

func (f *frameBuilder) header(elink uint16, l1counter uint8, bcid uint16) Frame {
	return f.roundTrip(Frame{Kind: Header, Elink: elink, L1Counter: l1counter, BCID: bcid})
}

// hit makes a timing data frame; a non-zero toa keeps the low word above
// the empty FIFO limit.
func (f *frameBuilder) hit(elink uint16, row, col uint8, toa uint16) Frame {
	return f.roundTrip(Frame{
		Kind:    Data,
		Elink:   elink,
		RowID:   row,
		ColID:   col,
		Payload: TimingPayload{TOA: toa, TOT: 7, Cal: 150},
	})
}

func (f *frameBuilder) trailer(elink uint16, chipID uint32, hits uint16) Frame {
	return f.roundTrip(Frame{Kind: Trailer, Elink: elink, ChipID: chipID, Hits: hits})
}

// event returns the frames of a single-elink event with nHits hits. The toa
// depends on the bcid so that hits of neighbouring events are different
// words.
func (f *frameBuilder) event(l1counter uint8, bcid uint16, nHits int) []Frame {
	frames := []Frame{f.header(0, l1counter, bcid)}
	for i := 0; i < nHits; i++ {
		toa := uint16((int(bcid)*3+i)%1000 + 1)
		frames = append(frames, f.hit(0, uint8(i%16), uint8(i/16%16), toa))
	}
	return append(frames, f.trailer(0, 1, uint16(nHits)))
}

func rawFrames(frames []Frame) []uint64 {
	raws := make([]uint64, len(frames))
	for i, frame := range frames {
		raws[i] = frame.RawFull
	}
	return raws
}

// encodeStream writes frames as little-endian word pairs, low word first.
func encodeStream(raws []uint64) []byte {
	buf := make([]byte, 0, len(raws)*8)
	for _, raw := range raws {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(raw))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(raw>>32))
	}
	return buf
}

func testTuning() Tuning {
	tuning := DefaultTuning()
	tuning.SkipTriggerCheck = true
	return tuning
}
