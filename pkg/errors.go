package decoder

import (
	"errors"
	"fmt"
)

// ErrNilBuffer is returned when a stream buffer is nil rather than empty.
var ErrNilBuffer = errors.New("nil stream buffer")

// ErrNoStreams is returned when a run has no input streams at all.
var ErrNoStreams = errors.New("no input streams")

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating a table.
type ErrCreateTable struct {
	TableName string
	Err       error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.TableName, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ErrWordAlignment represents a stream whose length is not a whole number of 32-bit words.
type ErrWordAlignment struct {
	Length int
}

func (e *ErrWordAlignment) Error() string {
	return fmt.Sprintf("stream length %d is not a multiple of 4 bytes", e.Length)
}

// ErrUnknownFrame represents a raw frame that matches no kind of the data format.
type ErrUnknownFrame struct {
	Raw uint64
}

func (e *ErrUnknownFrame) Error() string {
	return fmt.Sprintf("unknown frame 0x%016x", e.Raw)
}

// ErrMissingField represents a field map lacking a key required by its frame kind.
type ErrMissingField struct {
	Kind  FrameKind
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("%v frame is missing field %q", e.Kind, e.Field)
}

// ErrDuplicateStream represents two stream files resolving to the same
// readout board number.
type ErrDuplicateStream struct {
	Index  int
	First  string
	Second string
}

func (e *ErrDuplicateStream) Error() string {
	return fmt.Sprintf("streams %s and %s both map to readout board %d", e.First, e.Second, e.Index)
}

// ErrInvalidTuning represents a tuning constant outside its valid range.
type ErrInvalidTuning struct {
	Name  string
	Value int
}

func (e *ErrInvalidTuning) Error() string {
	return fmt.Sprintf("invalid tuning value %s=%d", e.Name, e.Value)
}

// ErrStreamPanic represents a panic recovered while decoding one stream.
type ErrStreamPanic struct {
	Stream int
	Value  any
}

func (e *ErrStreamPanic) Error() string {
	return fmt.Sprintf("decoder recovered from panic on stream %d: %v", e.Stream, e.Value)
}
