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

var (
	logger         decoder.ConsoleLogger
	VerbosityLevel int
)

func init() {
	logger = decoder.NewConsoleLogger(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = decoder.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	decoder.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		decoder.LogConfiguration(configuration)
	}

	if err := run(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	start := time.Now()

	runNumber, err := decoder.ResolveRunNumber(configuration)
	if err != nil {
		return fmt.Errorf("error getting run number: %w", err)
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Run number: %d", runNumber), "main")
	}

	streams, err := decoder.LoadStreams(configuration.FilesIn)
	if err != nil {
		return fmt.Errorf("error reading stream files: %w", err)
	}

	mode := configuration.BoardMode
	if !configuration.NoDB {
		streams, mode, err = applyBoardLayout(streams, runNumber)
		if err != nil {
			return err
		}
	}

	classifier, err := decoder.ClassifierFromConfig(configuration, mode)
	if err != nil {
		return fmt.Errorf("error building classifier: %w", err)
	}

	result, err := decoder.DecodeRun(streams, classifier, configuration)
	if result == nil || result.Merged == nil {
		return fmt.Errorf("error decoding run %d: %w", runNumber, err)
	}
	if err != nil {
		logger.Error(fmt.Sprintf("some streams could not be decoded: %v", err))
	}
	logger.Info(fmt.Sprintf("Total events merged: %d", result.Merged.Len()), "main")
	if result.Exported == nil {
		logger.Info("No events to export", "main")
	}

	if configuration.WriteData && configuration.FileOut != "" {
		if err := writeRun(runNumber, result); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
	return nil
}

func applyBoardLayout(streams []decoder.Stream, runNumber int) ([]decoder.Stream, decoder.BoardMode, error) {
	dbConn, err := decoder.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	if err != nil {
		return nil, decoder.BoardMode{}, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()

	layout, err := decoder.LoadBoardLayout(dbConn, runNumber, VerbosityLevel)
	if err != nil {
		return nil, decoder.BoardMode{}, fmt.Errorf("error loading board layout: %w", err)
	}
	mode, err := layout.Mode()
	if err != nil {
		return nil, decoder.BoardMode{}, err
	}
	return layout.OrderStreams(streams), mode, nil
}

func writeRun(runNumber int, result *decoder.RunResult) (err error) {
	writer, err := decoder.NewWriter(configuration.FileOut, configuration.CompressionLevel)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := writer.WriteRun(runNumber, result); err != nil {
		return fmt.Errorf("error writing run %d: %w", runNumber, err)
	}
	return nil
}
