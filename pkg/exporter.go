package decoder

// ExportedEvent is the flat record handed to the file writer.
type ExportedEvent struct {
	Event     int
	L1Counter uint8
	BCID      uint16
	Row       []uint8
	Col       []uint8
	TOTCode   []uint16
	TOACode   []uint16
	CalCode   []uint16
	Elink     []uint16
	ChipID    []uint32
	NHits     []int
	Streams   []int
}

type ExportedTable struct {
	Events []ExportedEvent
}

// Export flattens a merged table. Only the header bcid is kept; the bcids
// of counter hits are dropped. It returns nil when there is no event.
func Export(merged *MergedTable) *ExportedTable {
	if merged.Len() == 0 {
		return nil
	}
	table := &ExportedTable{Events: make([]ExportedEvent, len(merged.Events))}
	for i := range merged.Events {
		table.Events[i] = exportEvent(&merged.Events[i])
	}
	return table
}

func exportEvent(ev *MergedEvent) ExportedEvent {
	n := len(ev.Hits)
	out := ExportedEvent{
		Event:     ev.Index,
		L1Counter: ev.L1Counter,
		Row:       make([]uint8, n),
		Col:       make([]uint8, n),
		TOTCode:   make([]uint16, 0, n),
		TOACode:   make([]uint16, 0, n),
		CalCode:   make([]uint16, 0, n),
		Elink:     make([]uint16, n),
		ChipID:    make([]uint32, n),
		NHits:     append([]int(nil), ev.NHits...),
		Streams:   append([]int(nil), ev.Streams...),
	}
	if len(ev.BCID) > 0 {
		out.BCID = ev.BCID[0]
	}
	for i, hit := range ev.Hits {
		out.Row[i] = hit.Row
		out.Col[i] = hit.Col
		out.Elink[i] = hit.Elink
		out.ChipID[i] = hit.ChipID
		// timing codes exist only for hits taken in timing mode
		if p, ok := hit.Payload.(TimingPayload); ok {
			out.TOTCode = append(out.TOTCode, p.TOT)
			out.TOACode = append(out.TOACode, p.TOA)
			out.CalCode = append(out.CalCode, p.Cal)
		}
	}
	return out
}

func (t *ExportedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// TotalHits is the number of hits over all events.
func (t *ExportedTable) TotalHits() int {
	total := 0
	for _, ev := range t.Events {
		total += len(ev.Row)
	}
	return total
}

// ColumnNames lists the named columns of Columns in order.
var ColumnNames = []string{
	"event", "l1counter", "row", "col", "tot_code", "toa_code",
	"cal_code", "elink", "chipid", "bcid", "nhits", "streams",
}

// Columns exposes the table as named arrays, one entry per event. Scalar
// columns hold an int per event, ragged columns a slice per event.
func (t *ExportedTable) Columns() map[string][]any {
	columns := make(map[string][]any, len(ColumnNames))
	for _, ev := range t.Events {
		columns["event"] = append(columns["event"], ev.Event)
		columns["l1counter"] = append(columns["l1counter"], int(ev.L1Counter))
		columns["row"] = append(columns["row"], ev.Row)
		columns["col"] = append(columns["col"], ev.Col)
		columns["tot_code"] = append(columns["tot_code"], ev.TOTCode)
		columns["toa_code"] = append(columns["toa_code"], ev.TOACode)
		columns["cal_code"] = append(columns["cal_code"], ev.CalCode)
		columns["elink"] = append(columns["elink"], ev.Elink)
		columns["chipid"] = append(columns["chipid"], ev.ChipID)
		columns["bcid"] = append(columns["bcid"], int(ev.BCID))
		columns["nhits"] = append(columns["nhits"], ev.NHits)
		columns["streams"] = append(columns["streams"], ev.Streams)
	}
	return columns
}
