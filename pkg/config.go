package decoder

import (
	"encoding/json"
	"fmt"
	"os"
)

type Configuration struct {
	FilesIn          []string  `json:"files_in"`
	FileOut          string    `json:"file_out"`
	DataFormat       string    `json:"data_format"`
	BoardMode        BoardMode `json:"board_mode"`
	RunNumber        int       `json:"run_number"`
	RunRegex         string    `json:"run_regex"`
	Verbosity        int       `json:"verbosity"`
	SkipTriggerCheck bool      `json:"skip_trigger_check"`
	Force            bool      `json:"force"`
	NoDB             bool      `json:"no_db"`
	Host             string    `json:"host"`
	User             string    `json:"user"`
	Passwd           string    `json:"pass"`
	DBName           string    `json:"dbname"`
	NumWorkers       int       `json:"num_workers"`
	Parallel         bool      `json:"parallel"`
	WriteData        bool      `json:"write_data"`
	CompressionLevel int       `json:"compression_level"`
	Tuning           Tuning    `json:"tuning"`
}

// Tuning holds the constants of the event builder and the correlator.
type Tuning struct {
	DedupWindow         int  `json:"dedup_window"`
	UUIDWindow          int  `json:"uuid_window"`
	RetriggerWindow     int  `json:"retrigger_window"`
	RetriggerWrapWindow int  `json:"retrigger_wrap_window"`
	HitCap              int  `json:"hit_cap"`
	MatchWindow         int  `json:"match_window"`
	BCIDModulus         int  `json:"bcid_modulus"`
	L1Modulus           int  `json:"l1_modulus"`
	BCIDOffset          int  `json:"bcid_offset"`
	SkipTriggerCheck    bool `json:"-"`
	Verbosity           int  `json:"-"`
}

func DefaultTuning() Tuning {
	return Tuning{
		DedupWindow:         50,
		UUIDWindow:          150,
		RetriggerWindow:     150,
		RetriggerWrapWindow: 50,
		HitCap:              256,
		MatchWindow:         100,
		BCIDModulus:         3564,
		L1Modulus:           256,
		BCIDOffset:          1,
	}
}

func (t Tuning) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"dedup_window", t.DedupWindow},
		{"uuid_window", t.UUIDWindow},
		{"retrigger_window", t.RetriggerWindow},
		{"retrigger_wrap_window", t.RetriggerWrapWindow},
		{"hit_cap", t.HitCap},
		{"match_window", t.MatchWindow},
		{"bcid_modulus", t.BCIDModulus},
		{"l1_modulus", t.L1Modulus},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &ErrInvalidTuning{Name: p.name, Value: p.value}
		}
	}
	if t.BCIDOffset < 0 || t.BCIDOffset >= t.BCIDModulus {
		return &ErrInvalidTuning{Name: "bcid_offset", Value: t.BCIDOffset}
	}
	return nil
}

// BuilderTuning returns the tuning with the run-level switches folded in.
func (c Configuration) BuilderTuning() Tuning {
	t := c.Tuning
	t.SkipTriggerCheck = c.SkipTriggerCheck
	t.Verbosity = c.Verbosity
	return t
}

func DefaultConfiguration() Configuration {
	var config Configuration

	// Set default values
	config.BoardMode = BoardMode{Name: "timing", Code: TimingMode}
	config.RunRegex = `output_run_(\d+)_rb\d+\.dat`
	config.Verbosity = 0
	config.SkipTriggerCheck = true
	config.Force = true
	config.NoDB = true
	config.Host = "localhost"
	config.User = "etlreader"
	config.Passwd = "readonly"
	config.DBName = "ETL_TESTBEAM"
	config.NumWorkers = 4
	config.Parallel = false
	config.WriteData = true
	config.CompressionLevel = 4
	config.Tuning = DefaultTuning()
	return config
}

func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	return config, config.Tuning.Validate()
}

func LogConfiguration(config Configuration) {
	logger.Info(fmt.Sprintf("Files in: %v", config.FilesIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Data format: %s", config.DataFormat), "config")
	logger.Info(fmt.Sprintf("Board mode: %v", config.BoardMode), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Run regex: %s", config.RunRegex), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Skip trigger check: %t", config.SkipTriggerCheck), "config")
	logger.Info(fmt.Sprintf("Force: %t", config.Force), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Parallel: %t", config.Parallel), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Tuning: %+v", config.Tuning), "config")
}
