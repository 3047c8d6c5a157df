package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/escalation"
	"mnp-assistant-be/pkg/knowledge"
	"mnp-assistant-be/pkg/llm"
	"mnp-assistant-be/pkg/metrics"
	"mnp-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

const logModule = "ConversationOrchestrator"

const (
	apologyText   = "申し訳ありません。現在、回答を作成できませんでした。お手数ですが担当者へのお問い合わせをご利用ください。"
	contactLabel  = "担当者に問い合わせる"
	escalateLabel = "担当者につなぐ"
)

type Mode string

const (
	ModeWorkflow  Mode = "workflow"
	ModeKnowledge Mode = "knowledge"
	ModeFallback  Mode = "fallback"
)

type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type Retriever interface {
	Search(ctx context.Context, query string, sc knowledge.SearchContext) knowledge.SearchResponse
}

type Workflows interface {
	Start(ctx context.Context, sessionID uuid.UUID, workflowID string, initialData map[string]interface{}) (*workflow.State, error)
	Advance(ctx context.Context, in workflow.AdvanceInput) (*workflow.State, error)
	Skip(ctx context.Context, sessionID uuid.UUID, reason string) (*workflow.State, error)
	Current(ctx context.Context, sessionID uuid.UUID) (*workflow.State, error)
	Reset(ctx context.Context, sessionID uuid.UUID, workflowID string) (*workflow.State, error)
}

type Completer interface {
	Complete(ctx context.Context, systemContext, userPrompt string, opts llm.CompletionOptions) (string, error)
}

type Escalator interface {
	ShouldEscalate(s escalation.Signals) escalation.Decision
	Initiate(ctx context.Context, req escalation.InitiateRequest) (*entity.EscalationTicket, error)
	ActiveForSession(ctx context.Context, sessionID uuid.UUID) (*entity.EscalationTicket, error)
}

// Turn is one user message plus the session context the orchestrator needs.
type Turn struct {
	SessionID      uuid.UUID
	Message        string
	SelectedOption string
	Carrier        string
	TargetCarrier  string
	// History holds earlier turns, oldest first, without the current message.
	History          []escalation.Turn
	SessionStartedAt time.Time
}

type Reply struct {
	Text             string
	Mode             Mode
	Actions          []Action
	Workflow         *workflow.State
	Sources          []knowledge.Result
	ContextRelevance float64
	Confidence       *float64
	Escalation       *entity.EscalationTicket
}

type Config struct {
	DefaultWorkflow string
	Completion      llm.CompletionOptions
	HistoryTurns    int
}

type Orchestrator struct {
	retriever Retriever
	workflows Workflows
	completer Completer
	arbiter   Escalator
	composer  *PromptComposer
	config    Config
	logger    Logger
	metrics   *metrics.Metrics
}

func NewOrchestrator(retriever Retriever, workflows Workflows, completer Completer, arbiter Escalator, config Config, logger Logger, m *metrics.Metrics) *Orchestrator {
	if config.DefaultWorkflow == "" {
		config.DefaultWorkflow = "carrier_switch"
	}
	return &Orchestrator{
		retriever: retriever,
		workflows: workflows,
		completer: completer,
		arbiter:   arbiter,
		composer:  NewPromptComposer(config.HistoryTurns),
		config:    config,
		logger:    logger,
		metrics:   m,
	}
}

// HandleTurn routes a message to the active workflow, a command, or the knowledge path.
// It only fails on invalid input or on workflow definition errors.
func (o *Orchestrator) HandleTurn(ctx context.Context, turn Turn) (*Reply, error) {
	turn.Message = strings.TrimSpace(turn.Message)
	if turn.Message == "" && turn.SelectedOption == "" {
		return nil, apperror.Validation("message is required", map[string]string{"message": "required"})
	}

	if strings.HasPrefix(turn.Message, "/") {
		return o.handleCommand(ctx, turn)
	}

	state, err := o.workflows.Current(ctx, turn.SessionID)
	if err != nil {
		return nil, err
	}
	if state != nil && !state.Completed && state.Step != nil {
		return o.advanceWorkflow(ctx, turn, state)
	}

	currentStep := ""
	if state != nil && state.Step != nil {
		currentStep = state.Step.ID
	}
	return o.answer(ctx, turn, currentStep), nil
}

func (o *Orchestrator) advanceWorkflow(ctx context.Context, turn Turn, state *workflow.State) (*Reply, error) {
	next, err := o.workflows.Advance(ctx, workflow.AdvanceInput{
		SessionID:      turn.SessionID,
		CurrentStepID:  state.Step.ID,
		UserInput:      turn.Message,
		SelectedOption: turn.SelectedOption,
	})
	if apperror.IsValidation(err) {
		// stay on the step and tell the user what to fix
		reply := renderStep(state)
		reply.Text = validationMessage(err) + "\n\n" + reply.Text
		return reply, nil
	}
	if err != nil {
		return nil, err
	}
	return renderStep(next), nil
}

func (o *Orchestrator) answer(ctx context.Context, turn Turn, currentStep string) *Reply {
	search := o.retriever.Search(ctx, turn.Message, knowledge.SearchContext{
		Carrier:     turn.Carrier,
		CurrentStep: currentStep,
	})

	reply := &Reply{
		Mode:             ModeKnowledge,
		Sources:          search.Items,
		ContextRelevance: search.ContextRelevance,
	}

	raw, err := o.completer.Complete(ctx,
		o.composer.SystemContext(search.Items, turn.Carrier, turn.TargetCarrier),
		o.composer.UserPrompt(turn.History, turn.Message),
		o.config.Completion,
	)
	if err != nil {
		o.metrics.ObserveCompletionFallback("unavailable")
		o.logger.Error(logModule, "Completion failed, sending fallback reply", map[string]interface{}{
			"session_id": turn.SessionID.String(),
			"error":      err,
		})
		reply.Mode = ModeFallback
		reply.Text = apologyText
		reply.Actions = []Action{{Type: ActionContactHuman, Label: contactLabel}}
	} else {
		o.applyCompletion(turn, raw, reply)
	}

	// Confidence stays nil on the fallback path; the other signals still apply.
	history := append(append([]escalation.Turn(nil), turn.History...), escalation.Turn{Role: escalation.RoleUser, Content: turn.Message, Kind: escalation.KindQuestion})
	decision := o.arbiter.ShouldEscalate(escalation.Signals{
		LastReply:        turn.Message,
		Confidence:       reply.Confidence,
		History:          history,
		SessionStartedAt: turn.SessionStartedAt,
	})
	if decision.Escalate {
		o.escalate(ctx, turn.SessionID, decision, reply)
	}
	return reply
}

func (o *Orchestrator) applyCompletion(turn Turn, raw string, reply *Reply) {
	parsed, ok := parseCompletion(raw)
	if ok {
		reply.Text = parsed.Reply
		reply.Confidence = parsed.Confidence
		reply.Actions = parsed.Actions
		return
	}
	o.metrics.ObserveCompletionFallback("malformed")
	o.logger.Warn(logModule, "Completion output was not valid JSON, using raw text", map[string]interface{}{
		"session_id": turn.SessionID.String(),
		"length":     len(raw),
	})
	reply.Text = stripFences(raw)
	if reply.Text == "" {
		reply.Mode = ModeFallback
		reply.Text = apologyText
	}
	reply.Actions = []Action{{Type: ActionEscalatePrompt, Label: escalateLabel}}
}

// escalate opens (or reuses) a ticket and augments the reply. A ticket that could not be
// stored is never announced; the user gets a contact action instead.
func (o *Orchestrator) escalate(ctx context.Context, sessionID uuid.UUID, decision escalation.Decision, reply *Reply) {
	ticket, err := o.arbiter.Initiate(ctx, escalation.InitiateRequest{
		SessionID: sessionID,
		Reason:    decision.Reason,
		Trigger:   decision.Trigger,
		Priority:  decision.Urgency,
	})
	if apperror.IsConflict(err) {
		ticket, err = o.arbiter.ActiveForSession(ctx, sessionID)
	}
	if err != nil || ticket == nil {
		o.logger.Error(logModule, "Escalation could not be recorded", map[string]interface{}{
			"session_id": sessionID.String(),
			"reason":     decision.Reason,
			"error":      err,
		})
		reply.Actions = appendAction(reply.Actions, Action{Type: ActionContactHuman, Label: contactLabel})
		return
	}

	reply.Escalation = ticket
	reply.Text = strings.TrimSpace(reply.Text + "\n\n" + escalationNotice(ticket))
	reply.Actions = appendAction(reply.Actions, Action{
		Type:  ActionEscalationStatus,
		Label: "対応状況を確認する",
		Value: ticket.Id.String(),
	})
}

func escalationNotice(t *entity.EscalationTicket) string {
	return fmt.Sprintf("担当者におつなぎします。現在の順番は%d番目、お待ち時間の目安は約%d分です。", t.QueuePosition, t.EstimatedWaitMinutes)
}

func appendAction(actions []Action, a Action) []Action {
	for _, existing := range actions {
		if existing.Type == a.Type {
			return actions
		}
	}
	return append(actions, a)
}

func validationMessage(err error) string {
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "入力内容を確認してください。"
}
