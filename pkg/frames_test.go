package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFromFields(t *testing.T) {
	frame, err := FrameFromFields(Header, FieldMap{"elink": 2, "l1counter": 300, "bcid": 17, "raw_full": 99})
	require.NoError(t, err)
	// l1counter is an 8-bit counter
	assert.Equal(t, uint8(44), frame.L1Counter)
	assert.Equal(t, uint16(17), frame.BCID)
	assert.Equal(t, uint64(99), frame.RawFull)

	_, err = FrameFromFields(Data, FieldMap{"elink": 0, "row_id": 1, "col_id": 1, "raw_full": 5})
	var missing *ErrMissingField
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "tot", missing.Field)

	_, err = FrameFromFields(Data, FieldMap{"elink": 0, "row_id": 1, "col_id": 1, "raw_full": 5, "counter_a": 3})
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "bcid", missing.Field)
}

func TestFieldMapClassifier(t *testing.T) {
	classifier := FieldMapClassifier(func(raw uint64) (FrameKind, FieldMap, error) {
		if raw == 0 {
			return Filler, nil, errors.New("idle")
		}
		return Trailer, FieldMap{"chipid": 7, "crc": 1, "hits": 2, "raw": raw, "raw_full": raw}, nil
	})

	frame, err := classifier.Classify(1234)
	require.NoError(t, err)
	assert.Equal(t, Trailer, frame.Kind)
	assert.Equal(t, uint32(7), frame.ChipID)
	assert.Equal(t, uint16(2), frame.Hits)

	_, err = classifier.Classify(0)
	assert.EqualError(t, err, "idle")
	assert.Equal(t, "trailer", Trailer.String())
	assert.Equal(t, "unknown", FrameKind(9).String())
}
