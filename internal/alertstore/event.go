package alertstore

import "alertcache/internal/domain"

// Kind names an event variant. It is also the wire type tag.
type Kind string

const (
	KindTotalsRefreshed       Kind = "totals_refreshed"
	KindListRefreshed         Kind = "list_refreshed"
	KindEntityAlertsRefreshed Kind = "entity_alerts_refreshed"
	KindStatusUpdated         Kind = "status_updated"
)

// Event is a store transition. The set of variants is closed: every variant
// carries its own handler, so a new variant must implement one to compile.
type Event interface {
	Kind() Kind
	apply(State) State
	payload() any
}

// TotalsRefreshed replaces the totals snapshot.
type TotalsRefreshed struct {
	Totals domain.AlertTotals
}

// ListRefreshed replaces the full list and the record set behind it.
// PageInfo, when set, replaces the cursor.
type ListRefreshed struct {
	Items    []domain.Alert
	PageInfo *domain.PageInfo
}

// EntityAlertsRefreshed merges the alerts of one data entity into the cache
// and replaces that entity's index entry.
type EntityAlertsRefreshed struct {
	DataEntityID domain.DataEntityID
	Items        []domain.Alert
}

// StatusUpdated replaces the status of a single record.
type StatusUpdated struct {
	AlertID domain.AlertID
	Status  domain.AlertStatus
}

func (TotalsRefreshed) Kind() Kind       { return KindTotalsRefreshed }
func (ListRefreshed) Kind() Kind         { return KindListRefreshed }
func (EntityAlertsRefreshed) Kind() Kind { return KindEntityAlertsRefreshed }
func (StatusUpdated) Kind() Kind         { return KindStatusUpdated }
