package conversation

import (
	"encoding/json"
	"strings"
)

// Action types attached to replies.
const (
	ActionEscalatePrompt   = "escalate_prompt"
	ActionContactHuman     = "contact_human"
	ActionSuggestion       = "suggestion"
	ActionSelectOption     = "select_option"
	ActionSkipStep         = "skip_step"
	ActionEscalationStatus = "escalation_status"
	ActionStartWorkflow    = "start_workflow"
)

type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

type completion struct {
	Reply      string
	Confidence *float64
	Actions    []Action
}

type completionPayload struct {
	Reply            string            `json:"reply"`
	Confidence       *float64          `json:"confidence"`
	SuggestedActions []json.RawMessage `json:"suggested_actions"`
}

// parseCompletion reads {reply, confidence, suggested_actions} from model output, tolerating
// markdown fences and surrounding prose. ok is false when no usable reply was found.
func parseCompletion(raw string) (completion, bool) {
	body := extractJSON(raw)
	if body == "" {
		return completion{}, false
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return completion{}, false
	}
	payload.Reply = strings.TrimSpace(payload.Reply)
	if payload.Reply == "" {
		return completion{}, false
	}

	out := completion{Reply: payload.Reply}
	if payload.Confidence != nil {
		c := *payload.Confidence
		if c < 0 {
			c = 0
		} else if c > 1 {
			c = 1
		}
		out.Confidence = &c
	}

	for _, rawAction := range payload.SuggestedActions {
		var label string
		if err := json.Unmarshal(rawAction, &label); err == nil {
			if label = strings.TrimSpace(label); label != "" {
				out.Actions = append(out.Actions, Action{Type: ActionSuggestion, Label: label})
			}
			continue
		}
		var a Action
		if err := json.Unmarshal(rawAction, &a); err == nil && (a.Label != "" || a.Value != "") {
			if a.Type == "" {
				a.Type = ActionSuggestion
			}
			out.Actions = append(out.Actions, a)
		}
	}
	return out, true
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// stripFences removes a surrounding code fence from text that is shown as-is.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
