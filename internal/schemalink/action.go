package schemalink

import (
	"encoding/json"
	"strings"
)

// ActionType tags one planner action. The vocabulary is closed; anything
// else is dispatched to the unknown branch.
type ActionType string

const (
	ActionRetrieveSchema ActionType = "retrieve_schema"
	ActionExploreSchema  ActionType = "explore_schema"
	ActionVerifySchema   ActionType = "verify_schema"
	ActionAddSchema      ActionType = "add_schema"
	ActionStop           ActionType = "stop_action"

	// ActionUnknown is never emitted by the model; it tags observations for
	// unrecognized action types.
	ActionUnknown ActionType = "unknown"
)

// Action is one structured planner request. Only the fields matching the
// type are meaningful; the rest stay zero.
type Action struct {
	Type    ActionType `json:"type"`
	Query   string     `json:"query,omitempty"`
	TopK    int        `json:"top_k,omitempty"`
	SQL     string     `json:"sql,omitempty"`
	Columns []string   `json:"columns,omitempty"`

	// ParseFallback marks the synthetic stop substituted for an unparseable
	// model response, so recovered stops stay distinguishable from genuine
	// ones in the trace.
	ParseFallback bool `json:"parse_fallback,omitempty"`

	raw json.RawMessage
}

// IsFeedback reports whether the action consults a tool rather than only
// mutating local state or stopping
func (a Action) IsFeedback() bool {
	switch a.Type {
	case ActionRetrieveSchema, ActionExploreSchema, ActionVerifySchema:
		return true
	default:
		return false
	}
}

// Raw returns the original JSON of the action when it was decoded from a
// model response, for echoing unrecognized actions into the trace
func (a Action) Raw() string {
	if len(a.raw) == 0 {
		return ""
	}

	return string(a.raw)
}

// UnmarshalJSON decodes the known fields and retains the raw bytes
func (a *Action) UnmarshalJSON(data []byte) error {
	type plain Action

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*a = Action(p)
	a.raw = append(json.RawMessage(nil), data...)

	return nil
}

// Observation is the deterministic result of executing one action.
// Immutable once produced.
type Observation struct {
	Action    ActionType               `json:"action,omitempty"`
	Query     string                   `json:"query,omitempty"`
	Returned  []string                 `json:"returned,omitempty"`
	Added     []string                 `json:"added,omitempty"`
	Status    string                   `json:"status,omitempty"`
	ErrorType string                   `json:"error,omitempty"`
	Message   string                   `json:"message,omitempty"`
	Summary   map[string]interface{}   `json:"summary,omitempty"`
	Warning   string                   `json:"warning,omitempty"`
	Detail    string                   `json:"detail,omitempty"`
}

// ParseActions decodes a model response into a list of actions. When the
// response is not a JSON array of action records, a single synthetic stop
// action is substituted so a malformed response can never wedge or crash
// the loop. The bool reports whether the fallback fired.
func ParseActions(raw string) ([]Action, bool) {
	text := strings.TrimSpace(raw)

	// Models occasionally wrap the array in a markdown fence.
	if stripped, ok := stripCodeFence(text); ok {
		text = stripped
	}

	var actions []Action
	if err := json.Unmarshal([]byte(text), &actions); err != nil {
		return []Action{{Type: ActionStop, ParseFallback: true}}, true
	}

	return actions, false
}

// stripCodeFence extracts the body of a leading markdown code fence
func stripCodeFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}

	rest := strings.TrimPrefix(text, "```")
	if idx := strings.Index(rest, "\n"); idx >= 0 {
		rest = rest[idx+1:]
	}

	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}

	return strings.TrimSpace(rest), true
}
