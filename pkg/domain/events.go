package domain

// EventPayload is an inbound or outbound domain event. Inbound events
// arrive already deserialized; the router maps them onto transition
// triggers by EventType within the Tenant scope.
type EventPayload struct {
	EventType string         `json:"event_type" yaml:"event_type"`
	Tenant    string         `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	// Optional tracing identifiers, passed through untouched.
	CorrelationID string `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty" yaml:"trace_id,omitempty"`
}

// RouteResult reports the outcome of routing one inbound event.
type RouteResult struct {
	EventType         string   `json:"event_type"`
	Tenant            string   `json:"tenant,omitempty"`
	AffectedInstances []string `json:"affected_instances"`
	Count             int      `json:"count"`
}

// SimulationStep records one successfully applied transition of a dry run.
type SimulationStep struct {
	Transition string `json:"transition"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// SimulationResult is the outcome of a definition dry run. History holds
// the applied steps up to the first blocking transition, if any.
type SimulationResult struct {
	Succeeded  bool             `json:"succeeded"`
	FinalState string           `json:"final_state"`
	History    []SimulationStep `json:"history"`
	Errors     []string         `json:"errors,omitempty"`
}
