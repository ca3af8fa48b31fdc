package history

import (
	"slices"
	"strings"
	"time"

	"github.com/xmppscan/xmppscan/pkg/types"
)

// Snapshot is the persisted state of the previous run.
type Snapshot struct {
	SavedAt   time.Time
	Endpoints []*types.EndpointRecord // sorted by ID

	index map[string]*types.EndpointRecord
}

// NewSnapshot indexes records by ID. The slice is sorted in place.
func NewSnapshot(records []*types.EndpointRecord, savedAt time.Time) *Snapshot {
	slices.SortFunc(records, func(a, b *types.EndpointRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	s := &Snapshot{
		SavedAt:   savedAt,
		Endpoints: records,
		index:     make(map[string]*types.EndpointRecord, len(records)),
	}
	for _, r := range records {
		s.index[r.ID] = r
	}
	return s
}

// Get returns the record for id.
func (s *Snapshot) Get(id string) (*types.EndpointRecord, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.index[id]
	return r, ok
}

// Len returns the number of records held.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Endpoints)
}
