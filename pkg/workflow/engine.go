package workflow

import (
	"context"
	"math"
	"strings"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/lock"
	"mnp-assistant-be/pkg/metrics"

	"github.com/google/uuid"
)

const logModule = "WorkflowEngine"

// Bag keys read by the carrier applicability filter.
const (
	DataFromCarrier = "from_carrier"
	DataToCarrier   = "to_carrier"
)

type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

// ProgressStore persists one active record per session.
type ProgressStore interface {
	// FindActive returns nil, nil when the session has no active record.
	FindActive(ctx context.Context, sessionID uuid.UUID) (*entity.WorkflowProgress, error)
	Save(ctx context.Context, progress *entity.WorkflowProgress) error
	Deactivate(ctx context.Context, sessionID uuid.UUID) error
}

// CompletionNotifier is told when a session finishes a workflow.
type CompletionNotifier interface {
	WorkflowCompleted(ctx context.Context, progress *entity.WorkflowProgress)
}

// State is what callers see after every engine operation.
type State struct {
	WorkflowID string
	// Step is nil when the workflow ended without a completion step.
	Step                *Step
	Progress            int
	Completed           bool
	CompletedSteps      []string
	CollectedData       map[string]interface{}
	EstimatedCompletion *time.Time
	// AutoSkipped lists steps passed over on the way to Step (carrier filter or skip condition).
	AutoSkipped []string
}

type AdvanceInput struct {
	SessionID uuid.UUID
	// CurrentStepID guards against stale clients. Empty means "whatever step is current".
	CurrentStepID  string
	UserInput      string
	SelectedOption string
}

type Engine struct {
	registry *Registry
	store    ProgressStore
	locker   lock.Locker
	notifier CompletionNotifier
	logger   Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type EngineOption func(*Engine)

func WithNotifier(n CompletionNotifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(registry *Registry, store ProgressStore, locker lock.Locker, logger Logger, opts ...EngineOption) *Engine {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	e := &Engine{
		registry: registry,
		store:    store,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start creates a fresh record at the workflow's first step, replacing any active one.
func (e *Engine) Start(ctx context.Context, sessionID uuid.UUID, workflowID string, initialData map[string]interface{}) (*State, error) {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.start(ctx, sessionID, workflowID, initialData)
}

func (e *Engine) start(ctx context.Context, sessionID uuid.UUID, workflowID string, initialData map[string]interface{}) (*State, error) {
	def, ok := e.registry.Get(workflowID)
	if !ok {
		return nil, apperror.NotFound("workflow %s not found", workflowID)
	}

	if err := e.store.Deactivate(ctx, sessionID); err != nil {
		return nil, apperror.Upstream("deactivate previous workflow", err)
	}

	now := e.now()
	rec := &entity.WorkflowProgress{
		Id:             uuid.New(),
		SessionId:      sessionID,
		WorkflowId:     def.ID,
		CompletedSteps: []string{},
		CollectedData:  make(map[string]interface{}, len(initialData)),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for k, v := range initialData {
		rec.CollectedData[k] = v
	}

	skipped, err := e.enter(def, rec, def.First().ID)
	if err != nil {
		return nil, err
	}
	e.refreshEstimate(def, rec)

	if err := e.store.Save(ctx, rec); err != nil {
		return nil, apperror.Upstream("save workflow progress", err)
	}

	e.logger.Info(logModule, "Workflow started", map[string]interface{}{
		"session_id":  sessionID.String(),
		"workflow_id": def.ID,
		"step":        rec.CurrentStep,
	})
	if rec.IsCompleted {
		e.completed(ctx, rec)
	}
	return e.state(def, rec, skipped), nil
}

// Advance validates the answer for the current step, records it and moves to the next step.
func (e *Engine) Advance(ctx context.Context, in AdvanceInput) (*State, error) {
	unlock, err := e.lock(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	def, rec, step, err := e.load(ctx, in.SessionID, in.CurrentStepID)
	if err != nil {
		return nil, err
	}

	required := false
	for _, c := range step.Conditions {
		if c.Action == ActionRequire && evaluate(c, rec.CollectedData) {
			required = true
			break
		}
	}
	if err := validateInput(step, in.UserInput, in.SelectedOption, required); err != nil {
		return nil, err
	}

	next := rec.Clone()
	recordAnswer(next.CollectedData, step.ID, strings.TrimSpace(in.UserInput), in.SelectedOption)

	return e.transition(ctx, def, next, step, resolveNext(step, in.SelectedOption, next.CollectedData), "advance")
}

// Skip moves past the current step without validation and records a skip marker.
func (e *Engine) Skip(ctx context.Context, sessionID uuid.UUID, reason string) (*State, error) {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	def, rec, step, err := e.load(ctx, sessionID, "")
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	next.CollectedData[step.ID] = skipMarker(reason)

	return e.transition(ctx, def, next, step, resolveNext(step, "", next.CollectedData), "skip")
}

// Current returns nil, nil when the session has no workflow.
func (e *Engine) Current(ctx context.Context, sessionID uuid.UUID) (*State, error) {
	rec, err := e.store.FindActive(ctx, sessionID)
	if err != nil {
		return nil, apperror.Upstream("load workflow progress", err)
	}
	if rec == nil {
		return nil, nil
	}
	def, ok := e.registry.Get(rec.WorkflowId)
	if !ok {
		return nil, apperror.NotFound("workflow %s not found", rec.WorkflowId)
	}
	return e.state(def, rec, nil), nil
}

// Reset discards the session's progress and starts again. An empty workflowID restarts the current workflow.
func (e *Engine) Reset(ctx context.Context, sessionID uuid.UUID, workflowID string) (*State, error) {
	unlock, err := e.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var initial map[string]interface{}
	rec, err := e.store.FindActive(ctx, sessionID)
	if err != nil {
		return nil, apperror.Upstream("load workflow progress", err)
	}
	if rec != nil {
		if workflowID == "" {
			workflowID = rec.WorkflowId
		}
		// carrier context survives a reset
		initial = make(map[string]interface{})
		for _, k := range []string{DataFromCarrier, DataToCarrier} {
			if v, ok := rec.CollectedData[k]; ok {
				initial[k] = v
			}
		}
	}
	if workflowID == "" {
		return nil, apperror.NotFound("no workflow to reset for session %s", sessionID)
	}

	e.logger.Info(logModule, "Workflow reset", map[string]interface{}{
		"session_id":  sessionID.String(),
		"workflow_id": workflowID,
	})
	return e.start(ctx, sessionID, workflowID, initial)
}

func (e *Engine) lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	unlock, err := e.locker.Lock(ctx, "workflow:"+sessionID.String())
	if err != nil {
		return nil, apperror.Upstream("acquire session lock", err)
	}
	return unlock, nil
}

func (e *Engine) load(ctx context.Context, sessionID uuid.UUID, currentStepID string) (*Definition, *entity.WorkflowProgress, *Step, error) {
	rec, err := e.store.FindActive(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, apperror.Upstream("load workflow progress", err)
	}
	if rec == nil {
		return nil, nil, nil, apperror.NotFound("no active workflow for session %s", sessionID)
	}

	def, ok := e.registry.Get(rec.WorkflowId)
	if !ok {
		return nil, nil, nil, apperror.NotFound("workflow %s not found", rec.WorkflowId)
	}
	if rec.IsCompleted {
		return nil, nil, nil, apperror.Conflict("workflow %s is already completed", rec.WorkflowId)
	}

	if currentStepID != "" {
		if _, ok := def.Step(currentStepID); !ok {
			return nil, nil, nil, apperror.NotFound("step %s not found in workflow %s", currentStepID, def.ID)
		}
		if currentStepID != rec.CurrentStep {
			return nil, nil, nil, apperror.Conflict("step %s is not the current step (%s)", currentStepID, rec.CurrentStep)
		}
	}

	step, ok := def.Step(rec.CurrentStep)
	if !ok {
		return nil, nil, nil, apperror.NotFound("step %s not found in workflow %s", rec.CurrentStep, def.ID)
	}
	return def, rec, step, nil
}

// transition completes the current step and enters nextID, or finishes the workflow when nextID is empty.
func (e *Engine) transition(ctx context.Context, def *Definition, rec *entity.WorkflowProgress, current *Step, nextID string, kind string) (*State, error) {
	markCompleted(rec, current.ID)

	var skipped []string
	if nextID == "" {
		finish(rec, "")
	} else {
		var err error
		skipped, err = e.enter(def, rec, nextID)
		if err != nil {
			return nil, err
		}
	}
	e.refreshEstimate(def, rec)
	rec.UpdatedAt = e.now()

	if err := e.store.Save(ctx, rec); err != nil {
		return nil, apperror.Upstream("save workflow progress", err)
	}

	e.metrics.ObserveWorkflowStep(def.ID, kind)
	e.logger.Info(logModule, "Workflow step "+kind, map[string]interface{}{
		"session_id":   rec.SessionId.String(),
		"workflow_id":  def.ID,
		"from":         current.ID,
		"to":           rec.CurrentStep,
		"progress":     rec.Progress,
		"completed":    rec.IsCompleted,
		"auto_skipped": skipped,
	})

	if rec.IsCompleted {
		e.completed(ctx, rec)
	}
	return e.state(def, rec, skipped), nil
}

// enter moves the record onto stepID, passing over steps that do not apply to the session.
func (e *Engine) enter(def *Definition, rec *entity.WorkflowProgress, stepID string) ([]string, error) {
	var skipped []string

	// every step can be auto-skipped at most once per entry
	for hops := 0; hops <= len(def.Steps); hops++ {
		step, ok := def.Step(stepID)
		if !ok {
			return nil, apperror.NotFound("step %s not found in workflow %s", stepID, def.ID)
		}

		reason := ""
		if !appliesToCarrier(step, rec.CollectedData) {
			reason = "carrier_not_applicable"
		} else if skipConditionHolds(step, rec.CollectedData) {
			reason = "condition"
		}

		if reason == "" {
			unmarkCompleted(rec, step.ID)
			rec.CurrentStep = step.ID
			if step.Type == StepCompletion {
				finish(rec, step.ID)
			} else {
				rec.Progress = e.progressFor(def, rec)
			}
			return skipped, nil
		}

		rec.CollectedData[step.ID] = skipMarker(reason)
		markCompleted(rec, step.ID)
		skipped = append(skipped, step.ID)

		stepID = resolveNext(step, "", rec.CollectedData)
		if stepID == "" {
			finish(rec, "")
			return skipped, nil
		}
	}
	return nil, apperror.NotFound("workflow %s: no applicable step reachable", def.ID)
}

// progressFor never lowers the stored percentage.
func (e *Engine) progressFor(def *Definition, rec *entity.WorkflowProgress) int {
	pct := int(math.Floor(float64(len(rec.CompletedSteps)) / float64(len(def.Steps)) * 100))
	if pct > 99 {
		pct = 99
	}
	if pct < rec.Progress {
		return rec.Progress
	}
	return pct
}

func (e *Engine) refreshEstimate(def *Definition, rec *entity.WorkflowProgress) {
	now := e.now()
	if rec.IsCompleted {
		rec.EstimatedCompletion = &now
		return
	}
	remaining := len(def.Steps) - len(rec.CompletedSteps)
	if remaining < 1 {
		remaining = 1
	}
	eta := now.Add(time.Duration(remaining) * def.StepDuration())
	rec.EstimatedCompletion = &eta
}

func (e *Engine) completed(ctx context.Context, rec *entity.WorkflowProgress) {
	e.metrics.ObserveWorkflowCompleted(rec.WorkflowId)
	if e.notifier != nil {
		e.notifier.WorkflowCompleted(ctx, rec)
	}
}

func (e *Engine) state(def *Definition, rec *entity.WorkflowProgress, skipped []string) *State {
	s := &State{
		WorkflowID:          def.ID,
		Progress:            rec.Progress,
		Completed:           rec.IsCompleted,
		CompletedSteps:      append([]string(nil), rec.CompletedSteps...),
		CollectedData:       rec.CollectedData,
		EstimatedCompletion: rec.EstimatedCompletion,
		AutoSkipped:         skipped,
	}
	if step, ok := def.Step(rec.CurrentStep); ok {
		s.Step = step
	}
	return s
}

// resolveNext picks the explicit option target, then the first true branch condition, then the default.
func resolveNext(step *Step, option string, data map[string]interface{}) string {
	if option != "" {
		if o, ok := step.Option(option); ok && o.Next != "" {
			return o.Next
		}
	}
	for _, c := range step.Conditions {
		if c.Action != ActionBranch {
			continue
		}
		if evaluate(c, data) {
			return c.Target
		}
	}
	return step.Next
}

func appliesToCarrier(step *Step, data map[string]interface{}) bool {
	if len(step.Carriers) == 0 {
		return true
	}
	from := strings.ToLower(toString(data[DataFromCarrier]))
	to := strings.ToLower(toString(data[DataToCarrier]))
	for _, c := range step.Carriers {
		c = strings.ToLower(c)
		if c == from || c == to {
			return true
		}
	}
	return false
}

func skipConditionHolds(step *Step, data map[string]interface{}) bool {
	for _, c := range step.Conditions {
		if c.Action == ActionSkip && evaluate(c, data) {
			return true
		}
	}
	return false
}

func recordAnswer(data map[string]interface{}, stepID, input, option string) {
	switch {
	case option != "" && input != "":
		data[stepID] = option
		data[stepID+".input"] = input
	case option != "":
		data[stepID] = option
	case input != "":
		data[stepID] = input
	}
}

func skipMarker(reason string) map[string]interface{} {
	m := map[string]interface{}{"skipped": true}
	if reason != "" {
		m["reason"] = reason
	}
	return m
}

// finish marks the workflow complete. currentStep is the completion step, or empty for an implicit end.
func finish(rec *entity.WorkflowProgress, currentStep string) {
	rec.CurrentStep = currentStep
	rec.IsCompleted = true
	rec.Progress = 100
}

func markCompleted(rec *entity.WorkflowProgress, stepID string) {
	if !rec.HasCompleted(stepID) {
		rec.CompletedSteps = append(rec.CompletedSteps, stepID)
	}
}

func unmarkCompleted(rec *entity.WorkflowProgress, stepID string) {
	out := rec.CompletedSteps[:0]
	for _, s := range rec.CompletedSteps {
		if s != stepID {
			out = append(out, s)
		}
	}
	rec.CompletedSteps = out
}
