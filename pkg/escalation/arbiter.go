package escalation

import (
	"strings"
	"sync"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/metrics"
)

const logModule = "EscalationArbiter"

// Triggers recorded on tickets and metrics.
const (
	TriggerLowConfidence     = "low_confidence"
	TriggerRepetition        = "repeated_question"
	TriggerNegativeSentiment = "negative_sentiment"
	TriggerLongSession       = "long_session"
	TriggerUserRequest       = "user_request"
)

const (
	ReasonLowConfidence     = "low AI confidence"
	ReasonRepetition        = "user repeated the same question"
	ReasonNegativeSentiment = "negative sentiment detected"
	ReasonLongSession       = "session duration exceeded"
)

type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type Thresholds struct {
	MinConfidence      float64
	RepeatCount        int
	RepeatSimilarity   float64
	NegativeHits       int
	MaxSessionDuration time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:      0.3,
		RepeatCount:        3,
		RepeatSimilarity:   0.7,
		NegativeHits:       2,
		MaxSessionDuration: 1800 * time.Second,
	}
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TurnKind tells free-text questions apart from commands and workflow answers.
// The zero value counts as a question.
type TurnKind string

const (
	KindQuestion TurnKind = "question"
	KindCommand  TurnKind = "command"
	KindWorkflow TurnKind = "workflow"
)

type Turn struct {
	Role    string
	Content string
	Kind    TurnKind
}

// IsQuestion reports whether the turn is a user question the repetition check should see.
func (t Turn) IsQuestion() bool {
	if t.Role != RoleUser || t.Kind == KindCommand || t.Kind == KindWorkflow {
		return false
	}
	return !strings.HasPrefix(strings.TrimSpace(t.Content), "/")
}

// Signals feed ShouldEscalate. History includes the latest user turn.
type Signals struct {
	LastReply        string
	Confidence       *float64
	History          []Turn
	SessionStartedAt time.Time
}

type Decision struct {
	Escalate bool
	Reason   string
	Trigger  string
	Urgency  entity.TicketPriority
}

type Arbiter struct {
	thresholds Thresholds
	store      TicketStore
	notifiers  []Notifier
	logger     Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	// queueMu serialises queue reads and inserts within this process; the store's
	// WithQueueLock does the same across processes.
	queueMu sync.Mutex
}

type Option func(*Arbiter)

func WithNotifier(n Notifier) Option {
	return func(a *Arbiter) { a.notifiers = append(a.notifiers, n) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Arbiter) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

func NewArbiter(thresholds Thresholds, store TicketStore, logger Logger, opts ...Option) *Arbiter {
	a := &Arbiter{
		thresholds: thresholds,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ShouldEscalate checks the signals in fixed order; the first match wins.
func (a *Arbiter) ShouldEscalate(s Signals) Decision {
	t := a.thresholds

	if s.Confidence != nil && *s.Confidence < t.MinConfidence {
		return Decision{Escalate: true, Reason: ReasonLowConfidence, Trigger: TriggerLowConfidence, Urgency: entity.TicketPriorityMedium}
	}

	var questions []string
	for _, turn := range s.History {
		if turn.IsQuestion() {
			questions = append(questions, turn.Content)
		}
	}
	if len(questions) >= t.RepeatCount && LargestSimilarCluster(questions, t.RepeatSimilarity) >= t.RepeatCount {
		return Decision{Escalate: true, Reason: ReasonRepetition, Trigger: TriggerRepetition, Urgency: entity.TicketPriorityHigh}
	}

	if NegativeHits(s.LastReply) >= t.NegativeHits {
		return Decision{Escalate: true, Reason: ReasonNegativeSentiment, Trigger: TriggerNegativeSentiment, Urgency: entity.TicketPriorityHigh}
	}

	if !s.SessionStartedAt.IsZero() && a.now().Sub(s.SessionStartedAt) > t.MaxSessionDuration {
		return Decision{Escalate: true, Reason: ReasonLongSession, Trigger: TriggerLongSession, Urgency: entity.TicketPriorityMedium}
	}

	return Decision{}
}
