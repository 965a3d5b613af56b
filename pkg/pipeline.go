package decoder

import (
	"errors"
	"fmt"
)

// Stream is the raw content of one readout board file.
type Stream struct {
	Index int
	Name  string
	Data  []byte
}

type streamResult struct {
	position int
	table    *EventTable
	err      error
}

type streamJob struct {
	position int
	stream   Stream
}

// DecodeStream runs the framer, the classifier and the event builder over a
// single stream.
func DecodeStream(stream Stream, classifier Classifier, tuning Tuning) (*EventTable, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	words, err := ReadWords(stream.Data)
	if err != nil {
		return nil, fmt.Errorf("error reading stream %d: %w", stream.Index, err)
	}
	raws := MergeWords(words)
	if tuning.Verbosity > 1 {
		message := fmt.Sprintf("%d words, %d frames", len(words), len(raws))
		logger.Info(fmtStream(stream.Index, "%s", message), "pipeline")
	}
	frames := ClassifyFrames(raws, classifier, stream.Index, tuning.Verbosity)
	return BuildEventTable(stream.Index, frames, tuning)
}

func streamWorker(id int, classifier Classifier, tuning Tuning, jobs <-chan streamJob, results chan<- streamResult) {
	for job := range jobs {
		results <- decodeJob(id, job, classifier, tuning)
	}
}

func decodeJob(id int, job streamJob, classifier Classifier, tuning Tuning) (result streamResult) {
	result.position = job.position
	defer func() {
		if r := recover(); r != nil {
			result.table = nil
			result.err = &ErrStreamPanic{Stream: job.stream.Index, Value: r}
			logger.Error(fmt.Sprintf("worker %d: %v", id, result.err))
		}
	}()
	if tuning.Verbosity > 0 {
		message := fmt.Sprintf("worker %d processing stream %d (%s)", id, job.stream.Index, job.stream.Name)
		logger.Info(message, "pipeline")
	}
	result.table, result.err = DecodeStream(job.stream, classifier, tuning)
	return result
}

// DecodeStreams decodes every stream on a pool of cfg.NumWorkers goroutines.
// An invalid tuning fails before any stream is read. Tables come back in the
// order of streams. A stream that fails leaves a nil
// table and its error is joined into the returned error.
func DecodeStreams(streams []Stream, classifier Classifier, cfg Configuration) ([]*EventTable, error) {
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}
	tuning := cfg.BuilderTuning()
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	workers := max(cfg.NumWorkers, 1)
	workers = min(workers, len(streams))

	jobs := make(chan streamJob, len(streams))
	results := make(chan streamResult, len(streams))
	for w := 1; w <= workers; w++ {
		go streamWorker(w, classifier, tuning, jobs, results)
	}
	for i, stream := range streams {
		jobs <- streamJob{position: i, stream: stream}
	}
	close(jobs)

	tables := make([]*EventTable, len(streams))
	var errs []error
	for range streams {
		result := <-results
		tables[result.position] = result.table
		if result.err != nil {
			errs = append(errs, result.err)
		}
	}
	return tables, errors.Join(errs...)
}

// RunResult gathers the products of one decoded run.
type RunResult struct {
	Tables   []*EventTable
	Merged   *MergedTable
	Exported *ExportedTable
}

// DecodeRun decodes all streams, correlates them against the first one and
// exports the merged table. Streams that failed to decode are left out of
// the correlation; the reference stream must decode.
func DecodeRun(streams []Stream, classifier Classifier, cfg Configuration) (*RunResult, error) {
	tables, err := DecodeStreams(streams, classifier, cfg)
	if tables == nil {
		return nil, err
	}
	if tables[0] == nil {
		return &RunResult{Tables: tables}, err
	}
	if err != nil {
		logger.Error(fmt.Sprintf("continuing without failed streams: %v", err))
	}

	ref := tables[0]
	others := make([]*EventTable, 0, len(tables)-1)
	for _, table := range tables[1:] {
		if table == nil {
			continue
		}
		if !cfg.Force && !table.Diagnostics.Consistent() {
			logger.Error(fmtStream(table.Stream, "dropping stream with %d headers and %d trailers",
				table.Diagnostics.HeaderTotal, table.Diagnostics.TrailerTotal))
			continue
		}
		others = append(others, table)
	}
	if !cfg.Force && !ref.Diagnostics.Consistent() {
		logger.Error(fmtStream(ref.Stream, "reference stream has %d headers and %d trailers, keeping it anyway",
			ref.Diagnostics.HeaderTotal, ref.Diagnostics.TrailerTotal))
	}

	workers := 1
	if cfg.Parallel {
		workers = cfg.NumWorkers
	}
	merged, cerr := Correlate(ref, others, cfg.BuilderTuning(), workers)
	if cerr != nil {
		return &RunResult{Tables: tables}, errors.Join(err, cerr)
	}
	return &RunResult{
		Tables:   tables,
		Merged:   merged,
		Exported: Export(merged),
	}, err
}
