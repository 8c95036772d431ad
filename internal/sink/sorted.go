package sink

import (
	"sort"
	"sync"
)

// Sorted buffers every delivered result and replays them to inner,
// ordered by sortBy, when Flush is called. Grounded on the teacher's
// internal/output/sorted.go SortedWriter, adapted to the Deliver/Flush
// vocabulary — WriteResult becomes the buffering Deliver, WriteFooter's
// sort-then-replay becomes Flush.
type Sorted struct {
	mu      sync.Mutex
	inner   Sink
	sortBy  string
	results []ResultRecord
}

// NewSorted wraps inner so its results are replayed sorted by sortBy
// ("status", "size", or "path"; any other value is a no-op ordering)
// instead of in arrival order.
func NewSorted(inner Sink, sortBy string) *Sorted {
	return &Sorted{inner: inner, sortBy: sortBy}
}

func (s *Sorted) Deliver(rec ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, rec)
	return nil
}

func (s *Sorted) Flush() error {
	s.mu.Lock()
	results := make([]ResultRecord, len(s.results))
	copy(results, s.results)
	s.mu.Unlock()

	sort.SliceStable(results, func(i, j int) bool {
		switch s.sortBy {
		case "status":
			return results[i].Status < results[j].Status
		case "size":
			return results[i].BodySize < results[j].BodySize
		case "path":
			return results[i].CandidatePath < results[j].CandidatePath
		default:
			return false
		}
	})
	for _, rec := range results {
		if err := s.inner.Deliver(rec); err != nil {
			return err
		}
	}
	return s.inner.Flush()
}
