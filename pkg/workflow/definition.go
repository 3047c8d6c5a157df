package workflow

import (
	"fmt"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

type StepType string

const (
	StepInfo       StepType = "info"
	StepQuestion   StepType = "question"
	StepAction     StepType = "action"
	StepValidation StepType = "validation"
	StepCompletion StepType = "completion"
)

func (t StepType) Valid() bool {
	switch t {
	case StepInfo, StepQuestion, StepAction, StepValidation, StepCompletion:
		return true
	}
	return false
}

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

type ConditionAction string

const (
	ActionSkip    ConditionAction = "skip"
	ActionBranch  ConditionAction = "branch"
	ActionRequire ConditionAction = "require"
)

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Next  string `yaml:"next,omitempty" json:"next,omitempty"`
}

// ValidationRules are checked against the user's input before a step is recorded.
// Custom names a validator registered in customValidators.
type ValidationRules struct {
	Required bool   `yaml:"required" json:"required"`
	Pattern  string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Custom   string `yaml:"custom,omitempty" json:"custom,omitempty"`
	Message  string `yaml:"message,omitempty" json:"message,omitempty"`

	pattern *regexp.Regexp
}

type Condition struct {
	Field    string          `yaml:"field" json:"field"`
	Operator Operator        `yaml:"operator" json:"operator"`
	Value    interface{}     `yaml:"value" json:"value"`
	Action   ConditionAction `yaml:"action" json:"action"`
	Target   string          `yaml:"target,omitempty" json:"target,omitempty"`
}

type Step struct {
	ID         string           `yaml:"id" json:"id"`
	Type       StepType         `yaml:"type" json:"type"`
	Title      string           `yaml:"title" json:"title"`
	Content    string           `yaml:"content" json:"content"`
	Options    []Option         `yaml:"options,omitempty" json:"options,omitempty"`
	Validation *ValidationRules `yaml:"validation,omitempty" json:"validation,omitempty"`
	Conditions []Condition      `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Next       string           `yaml:"next,omitempty" json:"next,omitempty"`
	// Carriers limits the step to sessions whose from_carrier or to_carrier is listed. Empty means every carrier.
	Carriers []string `yaml:"carriers,omitempty" json:"carriers,omitempty"`
}

func (s *Step) Option(value string) (*Option, bool) {
	for i := range s.Options {
		if s.Options[i].Value == value {
			return &s.Options[i], true
		}
	}
	return nil, false
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Definition is an immutable workflow loaded once at startup.
type Definition struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	EstimatedDuration Duration `yaml:"estimated_duration"`
	Steps             []Step   `yaml:"steps"`

	index map[string]int
}

func (d *Definition) Step(id string) (*Step, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return &d.Steps[i], true
}

func (d *Definition) First() *Step {
	if len(d.Steps) == 0 {
		return nil
	}
	return &d.Steps[0]
}

// StepDuration is the share of the estimated duration attributed to one step.
func (d *Definition) StepDuration() time.Duration {
	if len(d.Steps) == 0 {
		return 0
	}
	return d.EstimatedDuration.Duration() / time.Duration(len(d.Steps))
}

func (d *Definition) compile() error {
	d.index = make(map[string]int, len(d.Steps))
	for i := range d.Steps {
		step := &d.Steps[i]
		if step.ID == "" {
			return fmt.Errorf("workflow %s: step %d has no id", d.ID, i)
		}
		if _, dup := d.index[step.ID]; dup {
			return fmt.Errorf("workflow %s: duplicate step id %s", d.ID, step.ID)
		}
		if !step.Type.Valid() {
			return fmt.Errorf("workflow %s: step %s has unknown type %q", d.ID, step.ID, step.Type)
		}
		if v := step.Validation; v != nil {
			if v.Pattern != "" {
				re, err := regexp.Compile(v.Pattern)
				if err != nil {
					return fmt.Errorf("workflow %s: step %s pattern: %w", d.ID, step.ID, err)
				}
				v.pattern = re
			}
			if v.Custom != "" {
				if _, ok := customValidators[v.Custom]; !ok {
					return fmt.Errorf("workflow %s: step %s uses unknown validator %q", d.ID, step.ID, v.Custom)
				}
			}
		}
		d.index[step.ID] = i
	}
	return nil
}
