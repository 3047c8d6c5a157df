package conversation

import (
	"context"
	"strings"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/escalation"
	"mnp-assistant-be/pkg/workflow"
)

const helpText = "使えるコマンド: /start [ワークフロー], /reset, /skip [理由], /human"

func (o *Orchestrator) handleCommand(ctx context.Context, turn Turn) (*Reply, error) {
	fields := strings.Fields(turn.Message)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(turn.Message, fields[0]))

	switch cmd {
	case "/start":
		workflowID := arg
		if workflowID == "" {
			workflowID = o.config.DefaultWorkflow
		}
		state, err := o.workflows.Start(ctx, turn.SessionID, workflowID, carrierData(turn))
		if err != nil {
			return nil, err
		}
		return renderStep(state), nil

	case "/reset":
		state, err := o.workflows.Reset(ctx, turn.SessionID, arg)
		if err != nil {
			return nil, err
		}
		return renderStep(state), nil

	case "/skip":
		state, err := o.workflows.Skip(ctx, turn.SessionID, arg)
		if err != nil {
			return nil, err
		}
		return renderStep(state), nil

	case "/human":
		reason := arg
		if reason == "" {
			reason = "customer asked for a human agent"
		}
		reply := &Reply{Mode: ModeKnowledge, Text: "かしこまりました。"}
		o.escalate(ctx, turn.SessionID, escalation.Decision{
			Escalate: true,
			Reason:   reason,
			Trigger:  escalation.TriggerUserRequest,
			Urgency:  entity.TicketPriorityMedium,
		}, reply)
		return reply, nil
	}

	return &Reply{
		Mode: ModeKnowledge,
		Text: helpText,
		Actions: []Action{{
			Type:  ActionStartWorkflow,
			Label: "乗り換え手続きを始める",
			Value: "/start " + o.config.DefaultWorkflow,
		}},
	}, nil
}

func carrierData(turn Turn) map[string]interface{} {
	data := make(map[string]interface{}, 2)
	if turn.Carrier != "" {
		data[workflow.DataFromCarrier] = turn.Carrier
	}
	if turn.TargetCarrier != "" {
		data[workflow.DataToCarrier] = turn.TargetCarrier
	}
	return data
}
