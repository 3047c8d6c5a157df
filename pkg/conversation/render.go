package conversation

import (
	"fmt"
	"strings"

	"mnp-assistant-be/pkg/workflow"
)

const completedText = "手続きのご案内はすべて完了しました。ほかにご不明な点があれば質問してください。"

// renderStep turns a workflow state into a chat reply with option buttons.
func renderStep(state *workflow.State) *Reply {
	reply := &Reply{Mode: ModeWorkflow, Workflow: state}

	if state.Step == nil {
		reply.Text = completedText
		return reply
	}

	var b strings.Builder
	if state.Step.Title != "" {
		fmt.Fprintf(&b, "【%s】\n", state.Step.Title)
	}
	b.WriteString(strings.TrimSpace(state.Step.Content))
	if !state.Completed {
		fmt.Fprintf(&b, "\n\n（進捗 %d%%）", state.Progress)
	}
	reply.Text = b.String()

	if state.Completed {
		return reply
	}
	for _, opt := range state.Step.Options {
		reply.Actions = append(reply.Actions, Action{Type: ActionSelectOption, Label: opt.Label, Value: opt.Value})
	}
	reply.Actions = append(reply.Actions, Action{Type: ActionSkipStep, Label: "スキップ", Value: "/skip"})
	return reply
}
