package alertstore

import "alertcache/internal/domain"

// Apply returns the state that results from applying event to state.
// It never fails and never mutates state; a nil event is a no-op.
func Apply(state State, event Event) State {
	if event == nil {
		return state
	}
	return event.apply(state)
}

func (e TotalsRefreshed) apply(s State) State {
	s.totals = e.Totals
	return s
}

func (e ListRefreshed) apply(s State) State {
	byID := make(map[domain.AlertID]domain.Alert, len(e.Items))
	s.allIDs = foldItems(byID, e.Items)
	s.byID = byID
	s.alertIDsByDataEntityID = pruneIndex(s.alertIDsByDataEntityID, byID)
	if e.PageInfo != nil {
		s.pageInfo = *e.PageInfo
	}
	return s
}

func (e EntityAlertsRefreshed) apply(s State) State {
	if e.DataEntityID == "" {
		return s
	}
	var ids []domain.AlertID
	if len(e.Items) > 0 {
		byID := cloneRecords(s.byID, len(e.Items))
		ids = foldItems(byID, e.Items)
		s.byID = byID
	} else {
		ids = []domain.AlertID{}
	}
	index := cloneIndex(s.alertIDsByDataEntityID, 1)
	index[e.DataEntityID] = ids
	s.alertIDsByDataEntityID = index
	return s
}

func (e StatusUpdated) apply(s State) State {
	if e.AlertID == "" {
		return s
	}
	rec, ok := s.byID[e.AlertID]
	if !ok {
		// Unknown ids still get a partial record; overwrite is idempotent.
		rec = domain.Alert{ID: e.AlertID}
	}
	byID := cloneRecords(s.byID, 1)
	byID[e.AlertID] = rec.WithStatus(e.Status)
	s.byID = byID
	return s
}

// foldItems writes items into byID and returns their ids in order.
// Items without an id are skipped; a repeated id keeps its first position
// and its last record.
func foldItems(byID map[domain.AlertID]domain.Alert, items []domain.Alert) []domain.AlertID {
	ids := make([]domain.AlertID, 0, len(items))
	seen := make(map[domain.AlertID]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; !dup {
			seen[item.ID] = struct{}{}
			ids = append(ids, item.ID)
		}
		byID[item.ID] = item
	}
	return ids
}

// pruneIndex drops ids missing from byID out of every index sequence.
// The input map is returned as is when nothing needs to go.
func pruneIndex(index map[domain.DataEntityID][]domain.AlertID, byID map[domain.AlertID]domain.Alert) map[domain.DataEntityID][]domain.AlertID {
	var out map[domain.DataEntityID][]domain.AlertID
	for entityID, seq := range index {
		kept, changed := retainKnown(seq, byID)
		if !changed {
			continue
		}
		if out == nil {
			out = cloneIndex(index, 0)
		}
		out[entityID] = kept
	}
	if out == nil {
		if index == nil {
			return make(map[domain.DataEntityID][]domain.AlertID)
		}
		return index
	}
	return out
}

func retainKnown(seq []domain.AlertID, byID map[domain.AlertID]domain.Alert) ([]domain.AlertID, bool) {
	for i, id := range seq {
		if _, ok := byID[id]; ok {
			continue
		}
		kept := make([]domain.AlertID, i, len(seq))
		copy(kept, seq[:i])
		for _, rest := range seq[i+1:] {
			if _, ok := byID[rest]; ok {
				kept = append(kept, rest)
			}
		}
		return kept, true
	}
	return seq, false
}

func cloneRecords(m map[domain.AlertID]domain.Alert, extra int) map[domain.AlertID]domain.Alert {
	out := make(map[domain.AlertID]domain.Alert, len(m)+extra)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIndex(m map[domain.DataEntityID][]domain.AlertID, extra int) map[domain.DataEntityID][]domain.AlertID {
	out := make(map[domain.DataEntityID][]domain.AlertID, len(m)+extra)
	for k, v := range m {
		out[k] = v
	}
	return out
}
