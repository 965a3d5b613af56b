package decoder

import (
	"encoding/binary"
	"os"
)

// emptyFifoLimit is the largest low word written by the readout board when
// its FIFO is empty.
const emptyFifoLimit = 256

func ReadStreamFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	return data, nil
}

// ReadWords interprets buf as little-endian unsigned 32-bit words.
func ReadWords(buf []byte) ([]uint32, error) {
	if buf == nil {
		return nil, ErrNilBuffer
	}
	if len(buf)%4 != 0 {
		return nil, &ErrWordAlignment{Length: len(buf)}
	}
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return words, nil
}

// MergeWords pairs consecutive words into 64-bit frames, low word first.
// Pairs whose low word is empty FIFO padding are dropped and a trailing
// odd word is ignored.
func MergeWords(words []uint32) []uint64 {
	nPairs := len(words) / 2
	frames := make([]uint64, 0, nPairs)
	for i := 0; i < nPairs; i++ {
		lo := words[2*i]
		hi := words[2*i+1]
		if lo <= emptyFifoLimit {
			continue
		}
		frames = append(frames, uint64(lo)|uint64(hi)<<32)
	}
	return frames
}

// ClassifyFrames runs the classifier over every frame. Frames the classifier
// rejects are logged and dropped.
func ClassifyFrames(raws []uint64, classifier Classifier, stream int, verbosity int) []Frame {
	frames := make([]Frame, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		frame, err := classifier.Classify(raw)
		if err != nil {
			dropped++
			if verbosity > 1 {
				logger.Error(err.Error())
			}
			continue
		}
		frames = append(frames, frame)
	}
	if dropped > 0 && verbosity > 0 {
		logger.Info(fmtStream(stream, "dropped %d unclassifiable frames", dropped), "classifier")
	}
	return frames
}

// LoadStreams reads every stream file. The stream index is the readout
// board number found in the file name, or the position in files. Two files
// with the same index are rejected with an *ErrDuplicateStream.
func LoadStreams(files []string) ([]Stream, error) {
	if len(files) == 0 {
		return nil, ErrNoStreams
	}
	seen := make(map[int]string, len(files))
	for i, name := range files {
		index := BoardIDFromName(name, i)
		if previous, ok := seen[index]; ok {
			return nil, &ErrDuplicateStream{Index: index, First: previous, Second: name}
		}
		seen[index] = name
	}

	streams := make([]Stream, 0, len(files))
	for i, name := range files {
		data, err := ReadStreamFile(name)
		if err != nil {
			return nil, err
		}
		streams = append(streams, Stream{Index: BoardIDFromName(name, i), Name: name, Data: data})
	}
	return streams, nil
}
