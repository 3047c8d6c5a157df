package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	finished []string
}

func (n *recordingNotifier) WorkflowCompleted(ctx context.Context, p *entity.WorkflowProgress) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, p.WorkflowId)
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *MemoryStore) {
	t.Helper()
	reg, err := LoadBuiltin()
	require.NoError(t, err)
	store := NewMemoryStore()
	return NewEngine(reg, store, nil, logger.NopLogger{}, opts...), store
}

func carriers(from, to string) map[string]interface{} {
	return map[string]interface{}{DataFromCarrier: from, DataToCarrier: to}
}

func TestBuiltinWorkflowsValidate(t *testing.T) {
	reg, err := LoadBuiltin()
	require.NoError(t, err)
	assert.Equal(t, []string{"carrier_switch", "esim_transfer"}, reg.IDs())
	assert.NoError(t, reg.Validate())
}

// Every shipped workflow terminates when only default next-steps are followed.
func TestEveryWorkflowTerminatesOnDefaults(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, id := range engine.Registry().IDs() {
		t.Run(id, func(t *testing.T) {
			session := uuid.New()
			state, err := engine.Start(ctx, session, id, carriers("docomo", "au"))
			require.NoError(t, err)

			def, _ := engine.Registry().Get(id)
			last := state.Progress
			for i := 0; i <= len(def.Steps) && !state.Completed; i++ {
				next, err := engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: state.Step.ID})
				if apperror.IsValidation(err) {
					// steps that insist on an answer are passed with skip
					next, err = engine.Skip(ctx, session, "no answer")
				}
				require.NoError(t, err)
				assert.GreaterOrEqual(t, next.Progress, last)
				last = next.Progress
				state = next
			}

			assert.True(t, state.Completed)
			assert.Equal(t, 100, state.Progress)
		})
	}
}

func TestCarrierSwitchDocomoToAu(t *testing.T) {
	notifier := &recordingNotifier{}
	engine, store := newTestEngine(t, WithNotifier(notifier))
	ctx := context.Background()
	session := uuid.New()

	state, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "au"))
	require.NoError(t, err)
	assert.Equal(t, "welcome", state.Step.ID)
	assert.Equal(t, 0, state.Progress)
	require.NotNil(t, state.EstimatedCompletion)

	answers := map[string]AdvanceInput{
		"enter_mnp_number": {UserInput: "1234567890"},
		"identity_docs":    {SelectedOption: "my_number"},
	}

	var visited []string
	for !state.Completed {
		require.NotNil(t, state.Step)
		visited = append(visited, state.Step.ID)
		in := answers[state.Step.ID]
		in.SessionID = session
		in.CurrentStepID = state.Step.ID

		prev := state.Progress
		state, err = engine.Advance(ctx, in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, state.Progress, prev)
		if !state.Completed {
			assert.NotContains(t, state.CompletedSteps, state.Step.ID)
		}
	}

	assert.Equal(t, []string{
		"welcome", "check_contract", "get_mnp_number", "enter_mnp_number", "choose_plan",
		"device_check", "identity_docs", "submit_application", "activation_au", "activation",
	}, visited)
	require.NotNil(t, state.Step)
	assert.Equal(t, StepCompletion, state.Step.Type)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, []string{"carrier_switch"}, notifier.finished)

	rec, err := store.FindActive(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", rec.CollectedData["enter_mnp_number"])
	assert.Equal(t, "my_number", rec.CollectedData["identity_docs"])
}

func TestCarrierFilterSkipsOtherCarrierSteps(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "softbank"))
	require.NoError(t, err)

	def, _ := engine.Registry().Get("carrier_switch")
	step, _ := def.Step("activation_au")
	assert.False(t, appliesToCarrier(step, carriers("docomo", "softbank")))
	assert.True(t, appliesToCarrier(step, carriers("au", "softbank")))

	for _, id := range []string{"welcome", "check_contract", "get_mnp_number"} {
		_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: id})
		require.NoError(t, err)
	}
	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, UserInput: "1234567890"})
	require.NoError(t, err)
	for _, id := range []string{"choose_plan", "device_check"} {
		_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: id})
		require.NoError(t, err)
	}
	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, SelectedOption: "passport"})
	require.NoError(t, err)

	state, err := engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "submit_application"})
	require.NoError(t, err)
	assert.Equal(t, "activation", state.Step.ID)
	assert.Equal(t, []string{"activation_au"}, state.AutoSkipped)
	assert.Equal(t, map[string]interface{}{"skipped": true, "reason": "carrier_not_applicable"}, state.CollectedData["activation_au"])
}

func TestAdvanceBranches(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("condition branch", func(t *testing.T) {
		session := uuid.New()
		_, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "au"))
		require.NoError(t, err)
		_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "welcome"})
		require.NoError(t, err)

		state, err := engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "check_contract", SelectedOption: "yes"})
		require.NoError(t, err)
		assert.Equal(t, "contract_penalty_info", state.Step.ID)
	})

	t.Run("option next wins", func(t *testing.T) {
		session := uuid.New()
		_, err := engine.Start(ctx, session, "esim_transfer", nil)
		require.NoError(t, err)
		_, err = engine.Advance(ctx, AdvanceInput{SessionID: session})
		require.NoError(t, err)

		state, err := engine.Advance(ctx, AdvanceInput{SessionID: session, SelectedOption: "no"})
		require.NoError(t, err)
		assert.True(t, state.Completed)
		assert.Equal(t, "esim_unsupported", state.Step.ID)
		assert.Equal(t, 100, state.Progress)
	})
}

func TestAdvanceValidation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "au"))
	require.NoError(t, err)
	for _, id := range []string{"welcome", "check_contract", "get_mnp_number"} {
		_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: id})
		require.NoError(t, err)
	}

	before, _ := store.FindActive(ctx, session)

	tests := []struct {
		name  string
		input AdvanceInput
	}{
		{"missing", AdvanceInput{}},
		{"too short", AdvanceInput{UserInput: "12345"}},
		{"letters", AdvanceInput{UserInput: "abcdefghij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.SessionID = session
			_, err := engine.Advance(ctx, in)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	after, _ := store.FindActive(ctx, session)
	assert.Equal(t, before, after, "failed validation must not change state")

	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, SelectedOption: "bogus"})
	assert.True(t, apperror.IsValidation(err))
}

func TestRequireCondition(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "esim_transfer", carriers("docomo", "rakuten"))
	require.NoError(t, err)
	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session})
	require.NoError(t, err)
	state, err := engine.Advance(ctx, AdvanceInput{SessionID: session, SelectedOption: "yes"})
	require.NoError(t, err)
	require.Equal(t, "esim_eid", state.Step.ID)

	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session})
	assert.True(t, apperror.IsValidation(err))

	state, err = engine.Advance(ctx, AdvanceInput{SessionID: session, UserInput: "89049032000000000000000000000012"})
	require.NoError(t, err)
	assert.Equal(t, "esim_download", state.Step.ID)
}

func TestSkipRecordsMarker(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "esim_transfer", nil)
	require.NoError(t, err)
	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session})
	require.NoError(t, err)

	state, err := engine.Skip(ctx, session, "not sure")
	require.NoError(t, err)
	assert.Equal(t, "esim_eid", state.Step.ID)
	assert.Equal(t, map[string]interface{}{"skipped": true, "reason": "not sure"}, state.CollectedData["esim_device"])
}

func TestNotFoundAndConflict(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "does_not_exist", nil)
	assert.True(t, apperror.IsNotFound(err))

	_, err = engine.Advance(ctx, AdvanceInput{SessionID: uuid.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = engine.Start(ctx, session, "carrier_switch", nil)
	require.NoError(t, err)

	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "no_such_step"})
	assert.True(t, apperror.IsNotFound(err))

	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "choose_plan"})
	assert.True(t, apperror.IsConflict(err))

	current, err := engine.Current(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, current)
}

func TestResetKeepsCarriers(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "au"))
	require.NoError(t, err)
	_, err = engine.Advance(ctx, AdvanceInput{SessionID: session})
	require.NoError(t, err)

	state, err := engine.Reset(ctx, session, "")
	require.NoError(t, err)
	assert.Equal(t, "welcome", state.Step.ID)
	assert.Equal(t, 0, state.Progress)
	assert.Empty(t, state.CompletedSteps)
	assert.Equal(t, "au", state.CollectedData[DataToCarrier])

	_, err = engine.Reset(ctx, uuid.New(), "")
	assert.True(t, apperror.IsNotFound(err))
}

func TestConcurrentAdvanceIsSerialised(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	session := uuid.New()

	_, err := engine.Start(ctx, session, "carrier_switch", carriers("docomo", "au"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Advance(ctx, AdvanceInput{SessionID: session, CurrentStepID: "welcome"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsConflict(err):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 7, conflicts)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Save(ctx context.Context, p *entity.WorkflowProgress) error {
	return errors.New("connection reset")
}

func TestStoreFailureIsUpstream(t *testing.T) {
	reg, err := LoadBuiltin()
	require.NoError(t, err)
	engine := NewEngine(reg, failingStore{NewMemoryStore()}, nil, logger.NopLogger{},
		WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }))

	_, err = engine.Start(context.Background(), uuid.New(), "carrier_switch", nil)
	assert.True(t, apperror.IsUpstream(err))
}
