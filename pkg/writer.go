package decoder

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Writer stores a decoded run in an HDF5 file.
type Writer struct {
	File             *hdf5.File
	Filename         string
	CompressionLevel int
	RunGroup         *hdf5.Group
	EventsGroup      *hdf5.Group
	DiagGroup        *hdf5.Group
	RunInfoTable     *hdf5.Dataset
	EventTable       *hdf5.Dataset
	HitTable         *hdf5.Dataset
	LayerTable       *hdf5.Dataset
	MissingTable     *hdf5.Dataset
	ElinkTable       *hdf5.Dataset
	StreamTable      *hdf5.Dataset
	EvtCounter       int
	HitCounter       int
	LayerCounter     int
	MissingCounter   int
	ElinkCounter     int
	StreamCounter    int
}

func NewWriter(filename string, compressionLevel int) (*Writer, error) {
	writer := &Writer{Filename: filename, CompressionLevel: compressionLevel}
	logger.Info(fmt.Sprintf("Creating file: %s", filename), "writer")

	var err error
	writer.File, err = openFile(filename)
	if err != nil {
		return nil, err
	}
	if err := writer.createLayout(); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func (w *Writer) createLayout() error {
	var err error
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.EventsGroup, err = createGroup(w.File, "Events"); err != nil {
		return err
	}
	if w.DiagGroup, err = createGroup(w.File, "Diagnostics"); err != nil {
		return err
	}

	tables := []struct {
		dest     **hdf5.Dataset
		group    *hdf5.Group
		name     string
		datatype interface{}
	}{
		{&w.RunInfoTable, w.RunGroup, "runInfo", RunInfoHDF5{}},
		{&w.EventTable, w.EventsGroup, "events", EventHDF5{}},
		{&w.HitTable, w.EventsGroup, "hits", HitHDF5{}},
		{&w.LayerTable, w.EventsGroup, "layers", LayerHDF5{}},
		{&w.MissingTable, w.DiagGroup, "missing", MissingHDF5{}},
		{&w.ElinkTable, w.DiagGroup, "elinks", ElinkHDF5{}},
		{&w.StreamTable, w.DiagGroup, "streams", StreamHDF5{}},
	}
	for _, t := range tables {
		*t.dest, err = createTable(t.group, t.name, t.datatype, w.CompressionLevel)
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) WriteRunInfo(runNumber int, nStreams int) error {
	return writeEntryToTable(w.RunInfoTable, RunInfoHDF5{
		run_number: int32(runNumber),
		nstreams:   int32(nStreams),
	}, 0)
}

// WriteEvents appends the exported events with their hits and per-layer
// hit counts. Timing codes are -1 for hits without a timing payload.
func (w *Writer) WriteEvents(table *ExportedTable) error {
	if table.Len() == 0 {
		return nil
	}
	events := make([]EventHDF5, len(table.Events))
	hits := make([]HitHDF5, 0, table.TotalHits())
	var layers []LayerHDF5

	for i, ev := range table.Events {
		evtNumber := int32(ev.Event)
		events[i] = EventHDF5{
			evt_number: evtNumber,
			l1counter:  int32(ev.L1Counter),
			bcid:       int32(ev.BCID),
			nhits:      int32(len(ev.Row)),
			nlayers:    int32(len(ev.NHits)),
		}
		timing := len(ev.TOTCode) == len(ev.Row)
		for j := range ev.Row {
			hit := HitHDF5{
				evt_number: evtNumber,
				row:        int32(ev.Row[j]),
				col:        int32(ev.Col[j]),
				tot_code:   -1,
				toa_code:   -1,
				cal_code:   -1,
				elink:      int32(ev.Elink[j]),
				chipid:     int32(ev.ChipID[j]),
			}
			if timing {
				hit.tot_code = int32(ev.TOTCode[j])
				hit.toa_code = int32(ev.TOACode[j])
				hit.cal_code = int32(ev.CalCode[j])
			}
			hits = append(hits, hit)
		}
		for k, n := range ev.NHits {
			layer := LayerHDF5{evt_number: evtNumber, stream: -1, nhits: int32(n)}
			if k < len(ev.Streams) {
				layer.stream = int32(ev.Streams[k])
			}
			layers = append(layers, layer)
		}
	}

	if err := writeArrayToTable(w.EventTable, &events, w.EvtCounter); err != nil {
		return fmt.Errorf("error writing events: %w", err)
	}
	w.EvtCounter += len(events)
	if err := writeArrayToTable(w.HitTable, &hits, w.HitCounter); err != nil {
		return fmt.Errorf("error writing hits: %w", err)
	}
	w.HitCounter += len(hits)
	if err := writeArrayToTable(w.LayerTable, &layers, w.LayerCounter); err != nil {
		return fmt.Errorf("error writing layers: %w", err)
	}
	w.LayerCounter += len(layers)
	return nil
}

// WriteDiagnostics stores the per-stream builder diagnostics. Nil tables
// are streams that failed to decode and are skipped.
func (w *Writer) WriteDiagnostics(tables []*EventTable) error {
	var streams []StreamHDF5
	var missing []MissingHDF5
	var elinks []ElinkHDF5

	for _, table := range tables {
		if table == nil {
			continue
		}
		stream := int32(table.Stream)
		diag := table.Diagnostics
		streams = append(streams, StreamHDF5{
			stream:    stream,
			nevents:   int32(table.Len()),
			nheaders:  int32(diag.HeaderTotal),
			ntrailers: int32(diag.TrailerTotal),
			skipped:   int32(diag.Skipped),
			anomalies: int32(diag.Anomalies),
			expected:  int32(table.ExpectedEvents()),
		})
		for _, m := range diag.Missing {
			deadTime := int32(0)
			if m.DeadTime() {
				deadTime = 1
			}
			missing = append(missing, MissingHDF5{
				stream:    stream,
				l1counter: int32(m.L1Counter),
				bcid:      int32(m.BCID),
				event:     int32(m.Event),
				delta:     int32(m.Delta),
				next_bcid: int32(m.NextBCID),
				dead_time: deadTime,
			})
		}
		for _, elink := range SortedElinks(diag.Elinks) {
			r := diag.Elinks[elink]
			elinks = append(elinks, ElinkHDF5{
				stream:   stream,
				elink:    int32(elink),
				nheader:  int32(r.NHeader),
				nhits:    int32(r.NHits),
				ntrailer: int32(r.NTrailer),
			})
		}
	}

	if err := writeArrayToTable(w.StreamTable, &streams, w.StreamCounter); err != nil {
		return fmt.Errorf("error writing stream diagnostics: %w", err)
	}
	w.StreamCounter += len(streams)
	if err := writeArrayToTable(w.MissingTable, &missing, w.MissingCounter); err != nil {
		return fmt.Errorf("error writing missing events: %w", err)
	}
	w.MissingCounter += len(missing)
	if err := writeArrayToTable(w.ElinkTable, &elinks, w.ElinkCounter); err != nil {
		return fmt.Errorf("error writing elink reports: %w", err)
	}
	w.ElinkCounter += len(elinks)
	return nil
}

// WriteRun stores everything DecodeRun produced.
func (w *Writer) WriteRun(runNumber int, result *RunResult) error {
	if err := w.WriteRunInfo(runNumber, len(result.Tables)); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}
	if err := w.WriteEvents(result.Exported); err != nil {
		return err
	}
	return w.WriteDiagnostics(result.Tables)
}

func (w *Writer) Close() error {
	logger.Info(fmt.Sprintf("Closing file hdf writer %s", w.Filename), "writer")
	var errs []error

	datasets := []struct {
		name string
		dset *hdf5.Dataset
	}{
		{"run info table", w.RunInfoTable},
		{"event table", w.EventTable},
		{"hit table", w.HitTable},
		{"layer table", w.LayerTable},
		{"missing events table", w.MissingTable},
		{"elink table", w.ElinkTable},
		{"stream table", w.StreamTable},
	}
	for _, d := range datasets {
		if d.dset == nil {
			continue
		}
		if err := d.dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", d.name, err))
		}
	}

	groups := []struct {
		name  string
		group *hdf5.Group
	}{
		{"run", w.RunGroup},
		{"events", w.EventsGroup},
		{"diagnostics", w.DiagGroup},
	}
	for _, g := range groups {
		if g.group == nil {
			continue
		}
		if err := g.group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", g.name, err))
		}
	}

	if w.File != nil {
		if err := w.File.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
