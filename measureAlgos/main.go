package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	decoder "github.com/etl-testbeam/decoder_go/pkg"
	_ "github.com/ianlancetaylor/cgosymbolizer"
)

var configuration decoder.Configuration

var logger decoder.ConsoleLogger

func init() {
	logger = decoder.NewConsoleLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	repeats := flag.Int("repeats", 3, "Writes per compression level")
	maxLevel := flag.Int("max-level", 9, "Highest deflate level to measure")
	flag.Parse()

	var err error
	configuration, err = decoder.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	decoder.SetLogger(logger)
	if configuration.Verbosity > 0 {
		decoder.LogConfiguration(configuration)
	}

	runNumber, err := decoder.ResolveRunNumber(configuration)
	if err != nil {
		logger.Error(fmt.Sprintf("Error getting run number: %v", err))
		os.Exit(1)
	}

	start := time.Now()
	result, err := decodeOnce()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("Decoded %d events in %d ms", result.Merged.Len(), time.Since(start).Milliseconds()), "main")

	measurements := measureLevels(runNumber, result, *maxLevel, *repeats)
	for _, m := range measurements {
		fmt.Printf("(hdf5, comp %d) Time: %d ms, size %d bytes\n", m.Level, m.Duration.Milliseconds(), m.Size)
	}

	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
}

func decodeOnce() (*decoder.RunResult, error) {
	streams, err := decoder.LoadStreams(configuration.FilesIn)
	if err != nil {
		return nil, fmt.Errorf("error reading stream files: %w", err)
	}
	classifier, err := decoder.ClassifierFromConfig(configuration, configuration.BoardMode)
	if err != nil {
		return nil, fmt.Errorf("error building classifier: %w", err)
	}
	result, err := decoder.DecodeRun(streams, classifier, configuration)
	if result == nil || result.Merged == nil {
		return nil, fmt.Errorf("error decoding run: %w", err)
	}
	return result, nil
}
