package main

import (
	"fmt"
	"os"
	"time"

	decoder "github.com/etl-testbeam/decoder_go/pkg"
)

type Measurement struct {
	Level    int
	Repeat   int
	Duration time.Duration
	Size     int64
}

// measureLevels writes the same decoded run once per repeat and deflate
// level, overwriting the output file every time.
func measureLevels(runNumber int, result *decoder.RunResult, maxLevel int, repeats int) []Measurement {
	var measurements []Measurement
	for level := 0; level <= maxLevel; level++ {
		for i := 0; i < repeats; i++ {
			if configuration.Verbosity > 0 {
				logger.Info(fmt.Sprintf("Algorithm: standard hdf5, Compression level: %d", level), "benchmark")
			}
			m, err := writeWithLevel(runNumber, result, level)
			if err != nil {
				logger.Error(fmt.Sprintf("Error measuring level %d: %v", level, err))
				continue
			}
			m.Repeat = i
			measurements = append(measurements, m)
		}
	}
	return measurements
}

func writeWithLevel(runNumber int, result *decoder.RunResult, level int) (Measurement, error) {
	start := time.Now()
	writer, err := decoder.NewWriter(configuration.FileOut, level)
	if err != nil {
		return Measurement{}, err
	}
	writeErr := writer.WriteRun(runNumber, result)
	closeErr := writer.Close()
	if writeErr != nil {
		return Measurement{}, writeErr
	}
	if closeErr != nil {
		return Measurement{}, closeErr
	}
	duration := time.Since(start)

	fileInfo, err := os.Stat(configuration.FileOut)
	if err != nil {
		return Measurement{}, fmt.Errorf("Error getting file info: %w", err)
	}
	return Measurement{Level: level, Duration: duration, Size: fileInfo.Size()}, nil
}
