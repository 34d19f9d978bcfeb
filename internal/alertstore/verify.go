package alertstore

import (
	"errors"
	"fmt"
	"sort"

	"alertcache/internal/domain"
)

// ErrDanglingReference is wrapped by Verify when an index names a missing record.
var ErrDanglingReference = errors.New("index references missing alert")

// Verify checks that every id in the full list and in the data entity index
// has a record. It returns nil for every state reachable through Apply.
func Verify(s State) error {
	var errs []error
	for _, id := range s.allIDs {
		if _, ok := s.byID[id]; !ok {
			errs = append(errs, fmt.Errorf("%w: allIds contains %q", ErrDanglingReference, id))
		}
	}
	for _, entityID := range s.DataEntityIDs() {
		for _, id := range s.alertIDsByDataEntityID[entityID] {
			if _, ok := s.byID[id]; !ok {
				errs = append(errs, fmt.Errorf("%w: data entity %q contains %q", ErrDanglingReference, entityID, id))
			}
		}
	}
	return errors.Join(errs...)
}

// Dangling lists the ids referenced by an index but missing from the records.
func Dangling(s State) []domain.AlertID {
	missing := make(map[domain.AlertID]struct{})
	check := func(ids []domain.AlertID) {
		for _, id := range ids {
			if _, ok := s.byID[id]; !ok {
				missing[id] = struct{}{}
			}
		}
	}
	check(s.allIDs)
	for _, seq := range s.alertIDsByDataEntityID {
		check(seq)
	}
	out := make([]domain.AlertID, 0, len(missing))
	for id := range missing {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
