package alertstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"alertcache/internal/domain"
)

// Codec errors. Both mean the message cannot be routed at all.
var (
	ErrMalformedEnvelope = errors.New("malformed event envelope")
	ErrUnknownEventType  = errors.New("unknown event type")
)

// Envelope is the wire form of an event addressed to one session's store.
type Envelope struct {
	Type      Kind            `json:"type"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type listPayload struct {
	Items    []domain.Alert   `json:"items,omitempty"`
	PageInfo *domain.PageInfo `json:"pageInfo,omitempty"`
}

type entityPayload struct {
	EntityID domain.DataEntityID `json:"entityId"`
	Value    struct {
		Items []domain.Alert `json:"items,omitempty"`
	} `json:"value"`
}

type statusPayload struct {
	EntityID domain.AlertID     `json:"entityId"`
	Value    domain.AlertStatus `json:"value"`
}

func (e TotalsRefreshed) payload() any {
	return e.Totals
}

func (e ListRefreshed) payload() any {
	return listPayload{Items: e.Items, PageInfo: e.PageInfo}
}

func (e EntityAlertsRefreshed) payload() any {
	var p entityPayload
	p.EntityID = e.DataEntityID
	p.Value.Items = e.Items
	return p
}

func (e StatusUpdated) payload() any {
	return statusPayload{EntityID: e.AlertID, Value: e.Status}
}

// Encode serializes event into an envelope for sessionID.
func Encode(sessionID string, event Event) ([]byte, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrUnknownEventType)
	}
	payload, err := json.Marshal(event.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.Kind(), err)
	}
	return json.Marshal(Envelope{
		Type:      event.Kind(),
		SessionID: sessionID,
		Payload:   payload,
	})
}

// Decode parses an envelope. A known type whose payload does not decode
// yields the empty event of that type, so the store degrades instead of
// rejecting partial responses.
func Decode(raw []byte) (string, Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	switch env.Type {
	case KindTotalsRefreshed:
		var p domain.AlertTotals
		decodeOrZero(env.Payload, &p)
		return env.SessionID, TotalsRefreshed{Totals: p}, nil
	case KindListRefreshed:
		var p listPayload
		decodeOrZero(env.Payload, &p)
		return env.SessionID, ListRefreshed{Items: p.Items, PageInfo: p.PageInfo}, nil
	case KindEntityAlertsRefreshed:
		var p entityPayload
		decodeOrZero(env.Payload, &p)
		return env.SessionID, EntityAlertsRefreshed{DataEntityID: p.EntityID, Items: p.Value.Items}, nil
	case KindStatusUpdated:
		var p statusPayload
		decodeOrZero(env.Payload, &p)
		return env.SessionID, StatusUpdated{AlertID: p.EntityID, Status: p.Value}, nil
	default:
		return env.SessionID, nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

func decodeOrZero[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var zero T
		*dst = zero
	}
}
