package decoder

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// ExtractRunNumber reads the run number from a stream file name. The
// expression must have exactly one capture group matching an integer.
func ExtractRunNumber(name string, expression string) (int, error) {
	re, err := regexp.Compile(expression)
	if err != nil {
		return 0, fmt.Errorf("error compiling run regex: %w", err)
	}
	if re.NumSubexp() != 1 {
		return 0, fmt.Errorf("run regex %q must have exactly one group, has %d", expression, re.NumSubexp())
	}
	match := re.FindStringSubmatch(filepath.Base(name))
	if match == nil {
		return 0, fmt.Errorf("file name %q does not match run regex %q", name, expression)
	}
	run, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("run number %q in %q is not an integer: %w", match[1], name, err)
	}
	return run, nil
}

var boardIDRegex = regexp.MustCompile(`rb(\d+)`)

// BoardIDFromName returns the readout board number of a stream file name
// such as output_run_123_rb2.dat, or fallback when there is none.
func BoardIDFromName(name string, fallback int) int {
	matches := boardIDRegex.FindAllStringSubmatch(filepath.Base(name), -1)
	if len(matches) == 0 {
		return fallback
	}
	id, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return fallback
	}
	return id
}

// ResolveRunNumber returns the configured run number, or the one in the
// name of the first input file when none is configured.
func ResolveRunNumber(cfg Configuration) (int, error) {
	if cfg.RunNumber > 0 {
		return cfg.RunNumber, nil
	}
	if len(cfg.FilesIn) == 0 {
		return 0, ErrNoStreams
	}
	return ExtractRunNumber(cfg.FilesIn[0], cfg.RunRegex)
}
