package domain

// AlertTotals is an aggregate snapshot of alert counts.
// It is always replaced as a whole, never merged.
type AlertTotals struct {
	// Total counts every open alert visible to the caller.
	Total int64 `json:"total"`

	// MyTotal counts open alerts on entities the caller owns.
	MyTotal int64 `json:"myTotal"`

	// DependentTotal counts open alerts on entities downstream of the caller's.
	DependentTotal int64 `json:"dependentTotal"`
}

// PageInfo is the pagination cursor of the full alert list.
type PageInfo struct {
	// Total is the server-side count of matching alerts.
	Total int64 `json:"total"`

	// Page is the last fetched page number, 0-based.
	Page int `json:"page"`

	// HasNext reports whether more pages are available.
	HasNext bool `json:"hasNext"`
}

// InitialPageInfo is the cursor before anything has been fetched.
func InitialPageInfo() PageInfo {
	return PageInfo{Total: 0, Page: 0, HasNext: true}
}

// NewPageInfo builds the cursor for a fetched page.
func NewPageInfo(total int64, page, size int) PageInfo {
	hasNext := false
	if size > 0 && page >= 0 && total > 0 {
		pages := (total-1)/int64(size) + 1
		hasNext = int64(page) < pages-1
	}
	return PageInfo{Total: total, Page: page, HasNext: hasNext}
}

// AlertList is one page of alerts plus its cursor.
type AlertList struct {
	Items    []Alert   `json:"items"`
	PageInfo *PageInfo `json:"pageInfo,omitempty"`
}
