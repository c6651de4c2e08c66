package models

import "encoding/json"

// Org-data stream event types.
const (
	OrgDataEventData  = "data"
	OrgDataEventError = "error"
	OrgDataEventDone  = "done"
)

// OrgDataEvent is one frame of the org-detail fan-out stream: a completed
// section's rows, a section-level error, or the terminal done marker.
type OrgDataEvent struct {
	Type  string
	Key   string
	Data  []map[string]any
	Error string
}

// MarshalJSON emits only the fields that belong to the event's variant.
// A "data" event always carries a data array, even when empty, so clients
// never have to distinguish a missing key from an empty section.
func (e OrgDataEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case OrgDataEventData:
		rows := e.Data
		if rows == nil {
			rows = []map[string]any{}
		}
		return json.Marshal(struct {
			Type string           `json:"type"`
			Key  string           `json:"key"`
			Data []map[string]any `json:"data"`
		}{e.Type, e.Key, rows})
	case OrgDataEventError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Key   string `json:"key,omitempty"`
			Error string `json:"error"`
		}{e.Type, e.Key, e.Error})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{e.Type})
	}
}

// Meta-summary stream event types. Emission order is strict: exactly one
// metadata event, then zero or more content events, then one terminal done
// or error event.
const (
	MetaSummaryEventMetadata = "metadata"
	MetaSummaryEventContent  = "content"
	MetaSummaryEventDone     = "done"
	MetaSummaryEventError    = "error"
)

// MetaSummaryEvent is one frame of the meta-summary stream.
type MetaSummaryEvent struct {
	Type       string
	TrialCount int
	DateRange  string
	Text       string
	Error      string
}

func (e MetaSummaryEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case MetaSummaryEventMetadata:
		return json.Marshal(struct {
			Type       string `json:"type"`
			TrialCount int    `json:"trialCount"`
			DateRange  string `json:"dateRange"`
		}{e.Type, e.TrialCount, e.DateRange})
	case MetaSummaryEventContent:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{e.Type, e.Text})
	case MetaSummaryEventError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{e.Type, e.Error})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{e.Type})
	}
}
