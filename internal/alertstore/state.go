// Package alertstore implements the normalized alert cache of a client session.
//
// A State holds alert records keyed by id, the ordering of the current full
// list, the aggregate totals, a secondary index from data entity to alert ids
// and the list pagination cursor. States are values: Apply never mutates its
// input and shares every collection it does not change with the result.
package alertstore

import (
	"sort"

	"alertcache/internal/domain"
)

// State is one immutable snapshot of the alert cache.
// The zero value is usable but NewState should be preferred.
type State struct {
	byID                   map[domain.AlertID]domain.Alert
	allIDs                 []domain.AlertID
	totals                 domain.AlertTotals
	alertIDsByDataEntityID map[domain.DataEntityID][]domain.AlertID
	pageInfo               domain.PageInfo
}

// NewState returns the empty initial state.
func NewState() State {
	return State{
		byID:                   make(map[domain.AlertID]domain.Alert),
		allIDs:                 []domain.AlertID{},
		totals:                 domain.AlertTotals{},
		alertIDsByDataEntityID: make(map[domain.DataEntityID][]domain.AlertID),
		pageInfo:               domain.InitialPageInfo(),
	}
}

// Alert returns the record stored under id.
func (s State) Alert(id domain.AlertID) (domain.Alert, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Len returns the number of records in the cache, listed or not.
func (s State) Len() int {
	return len(s.byID)
}

// AllIDs returns the ids of the current full list, in fetch order.
func (s State) AllIDs() []domain.AlertID {
	return cloneIDs(s.allIDs)
}

// Alerts returns the records of the current full list, in fetch order.
func (s State) Alerts() []domain.Alert {
	return s.resolve(s.allIDs)
}

// Totals returns the current totals snapshot.
func (s State) Totals() domain.AlertTotals {
	return s.totals
}

// PageInfo returns the current list cursor.
func (s State) PageInfo() domain.PageInfo {
	return s.pageInfo
}

// DataEntityAlertIDs returns the indexed alert ids for a data entity.
// ok is false if the entity has never been refreshed.
func (s State) DataEntityAlertIDs(id domain.DataEntityID) (ids []domain.AlertID, ok bool) {
	seq, ok := s.alertIDsByDataEntityID[id]
	if !ok {
		return nil, false
	}
	return cloneIDs(seq), true
}

// DataEntityAlerts returns the indexed records for a data entity, in fetch order.
func (s State) DataEntityAlerts(id domain.DataEntityID) []domain.Alert {
	return s.resolve(s.alertIDsByDataEntityID[id])
}

// DataEntityIDs returns every indexed data entity id, sorted.
func (s State) DataEntityIDs() []domain.DataEntityID {
	out := make([]domain.DataEntityID, 0, len(s.alertIDsByDataEntityID))
	for id := range s.alertIDsByDataEntityID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot is a detached copy of a State with exported fields, served by
// the session snapshot route and compared in tests.
type Snapshot struct {
	ByID                   map[domain.AlertID]domain.Alert           `json:"byId"`
	AllIDs                 []domain.AlertID                          `json:"allIds"`
	Totals                 domain.AlertTotals                        `json:"totals"`
	AlertIDsByDataEntityID map[domain.DataEntityID][]domain.AlertID `json:"alertIdsByDataEntityId"`
	PageInfo               domain.PageInfo                           `json:"pageInfo"`
}

// Snapshot copies the state into plain exported collections.
func (s State) Snapshot() Snapshot {
	byID := make(map[domain.AlertID]domain.Alert, len(s.byID))
	for id, a := range s.byID {
		byID[id] = a
	}
	index := make(map[domain.DataEntityID][]domain.AlertID, len(s.alertIDsByDataEntityID))
	for id, seq := range s.alertIDsByDataEntityID {
		index[id] = cloneIDs(seq)
	}
	return Snapshot{
		ByID:                   byID,
		AllIDs:                 cloneIDs(s.allIDs),
		Totals:                 s.totals,
		AlertIDsByDataEntityID: index,
		PageInfo:               s.pageInfo,
	}
}

func (s State) resolve(ids []domain.AlertID) []domain.Alert {
	out := make([]domain.Alert, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func cloneIDs(ids []domain.AlertID) []domain.AlertID {
	out := make([]domain.AlertID, len(ids))
	copy(out, ids)
	return out
}
