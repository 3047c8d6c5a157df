package conversation

import (
	"fmt"
	"strings"

	"mnp-assistant-be/pkg/escalation"
	"mnp-assistant-be/pkg/knowledge"
)

// PromptComposer builds the system context and user prompt for a knowledge turn.
type PromptComposer struct {
	// HistoryTurns bounds how many prior turns are replayed into the prompt
	HistoryTurns int
}

func NewPromptComposer(historyTurns int) *PromptComposer {
	if historyTurns <= 0 {
		historyTurns = 6
	}
	return &PromptComposer{HistoryTurns: historyTurns}
}

func (c *PromptComposer) SystemContext(items []knowledge.Result, carrier, targetCarrier string) string {
	var prompt strings.Builder

	c.writeSystemRole(&prompt)
	c.writeSessionState(&prompt, carrier, targetCarrier)
	c.writeKnowledge(&prompt, items)
	c.writeOutputStructure(&prompt)

	return prompt.String()
}

func (c *PromptComposer) UserPrompt(history []escalation.Turn, question string) string {
	var prompt strings.Builder

	if len(history) > c.HistoryTurns {
		history = history[len(history)-c.HistoryTurns:]
	}
	if len(history) > 0 {
		prompt.WriteString("<conversation_history>\n")
		for _, turn := range history {
			fmt.Fprintf(&prompt, "%s: %s\n", turn.Role, turn.Content)
		}
		prompt.WriteString("</conversation_history>\n\n")
	}

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</user_question>\n")
	return prompt.String()
}

func (c *PromptComposer) writeSystemRole(prompt *strings.Builder) {
	prompt.WriteString("<system_role>\n")
	prompt.WriteString("You are a support assistant that helps customers switch mobile carriers in Japan using MNP (mobile number portability).\n")
	prompt.WriteString("Answer in the customer's language. Base every answer ONLY on the knowledge items below.\n")
	prompt.WriteString("If the knowledge does not cover the question, say so and lower your confidence.\n")
	prompt.WriteString("</system_role>\n\n")
}

func (c *PromptComposer) writeSessionState(prompt *strings.Builder, carrier, targetCarrier string) {
	prompt.WriteString("<session_state>\n")
	if carrier != "" {
		fmt.Fprintf(prompt, "Current carrier: %s\n", carrier)
	}
	if targetCarrier != "" {
		fmt.Fprintf(prompt, "Target carrier: %s\n", targetCarrier)
	}
	if carrier == "" && targetCarrier == "" {
		prompt.WriteString("Carriers unknown.\n")
	}
	prompt.WriteString("</session_state>\n\n")
}

func (c *PromptComposer) writeKnowledge(prompt *strings.Builder, items []knowledge.Result) {
	prompt.WriteString("<knowledge>\n")
	if len(items) == 0 {
		prompt.WriteString("No matching knowledge items were found.\n")
	}
	for i, res := range items {
		fmt.Fprintf(prompt, "<item index=\"%d\" category=\"%s\" relevance=\"%.2f\">\n", i+1, res.Item.Category, res.Score)
		fmt.Fprintf(prompt, "Q: %s\nA: %s\n", res.Item.Question, res.Item.Answer)
		prompt.WriteString("</item>\n")
	}
	prompt.WriteString("</knowledge>\n\n")
}

func (c *PromptComposer) writeOutputStructure(prompt *strings.Builder) {
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON in this exact structure:\n\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"reply\": \"answer shown to the customer\",\n")
	prompt.WriteString("  \"confidence\": 0.0 to 1.0 (how well the knowledge supports the answer),\n")
	prompt.WriteString("  \"suggested_actions\": [\"short follow-up the customer may want\"]\n")
	prompt.WriteString("}\n\n")
	prompt.WriteString("IMPORTANT: Output ONLY the JSON. No preamble, no explanation outside the JSON.\n")
	prompt.WriteString("</output_format>\n")
}
