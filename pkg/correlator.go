package decoder

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// MergedEvent is a reference event extended with the hits of the matching
// events of the other readout boards.
type MergedEvent struct {
	Index     int
	L1Counter uint8
	BCID      []uint16
	Hits      []Hit
	// one entry per contributing board, the reference first
	NHits []int
	// stream number of every contributing board, parallel to NHits
	Streams []int
}

type MergedTable struct {
	Events []MergedEvent
	// events of each non-reference stream that found a partner
	Matched map[int]int
}

func (t *MergedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// Correlate attaches to every reference event the first event of each
// other stream whose bcid is the reference bcid plus the nominal offset and
// whose index lies inside the match window. An invalid tuning is returned
// as an *ErrInvalidTuning before any goroutine starts.
func Correlate(ref *EventTable, others []*EventTable, tuning Tuning, workers int) (*MergedTable, error) {
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	merged := &MergedTable{Matched: make(map[int]int)}
	if ref == nil {
		merged.Events = []MergedEvent{}
		return merged, nil
	}

	merged.Events = make([]MergedEvent, len(ref.Events))
	if workers < 1 || len(ref.Events) < workers {
		workers = 1
	}
	matched := make([][]int, workers)

	var wg sync.WaitGroup
	chunk := (len(ref.Events) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(ref.Events))
		matched[w] = make([]int, len(others))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				merged.Events[i] = mergeEvent(&ref.Events[i], ref.Stream, others, tuning, matched[w])
			}
		}(w, start, end)
	}
	wg.Wait()

	for _, counts := range matched {
		for k, n := range counts {
			if others[k] != nil {
				merged.Matched[others[k].Stream] += n
			}
		}
	}

	if tuning.Verbosity > 0 {
		for _, other := range others {
			if other == nil {
				continue
			}
			message := fmt.Sprintf("merged %d of %d reference events with stream %d",
				merged.Matched[other.Stream], len(ref.Events), other.Stream)
			logger.Info(message, "correlator")
		}
	}
	return merged, nil
}

func mergeEvent(ev *Event, refStream int, others []*EventTable, tuning Tuning, matched []int) MergedEvent {
	out := MergedEvent{
		Index:     ev.Index,
		L1Counter: ev.L1Counter,
		BCID:      append([]uint16(nil), ev.BCID...),
		Hits:      append([]Hit(nil), ev.Hits...),
		NHits:     []int{ev.NHits()},
		Streams:   []int{refStream},
	}
	for k, other := range others {
		partner := findPartner(ev, other, tuning)
		if partner == nil {
			continue
		}
		matched[k]++
		out.Hits = append(out.Hits, partner.Hits...)
		out.NHits = append(out.NHits, partner.NHits())
		out.Streams = append(out.Streams, other.Stream)
	}
	return out
}

// findPartner scans the other stream in index order and returns the first
// qualifying event. Indices are strictly increasing, so the scan starts at
// the window edge.
func findPartner(ev *Event, other *EventTable, tuning Tuning) *Event {
	if other == nil || len(ev.BCID) == 0 {
		return nil
	}
	want := wrapAdd(int(ev.BCID[0]), tuning.BCIDOffset, tuning.BCIDModulus)
	lowest := ev.Index - tuning.MatchWindow + 1
	first, _ := slices.BinarySearchFunc(other.Events, lowest, func(e Event, index int) int {
		return e.Index - index
	})
	for j := first; j < len(other.Events); j++ {
		candidate := &other.Events[j]
		if absDiff(candidate.Index, ev.Index) >= tuning.MatchWindow {
			break
		}
		if len(candidate.BCID) > 0 && int(candidate.BCID[0]) == want {
			return candidate
		}
	}
	return nil
}
