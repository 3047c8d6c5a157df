package workflow

import (
	"regexp"
	"strings"

	"mnp-assistant-be/pkg/apperror"
)

var (
	mnpNumberPattern = regexp.MustCompile(`^\d{10}$`)
	phonePattern     = regexp.MustCompile(`^0[789]0-?\d{4}-?\d{4}$`)
	eidPattern       = regexp.MustCompile(`^\d{32}$`)
)

// customValidators are referenced by name from step definitions.
var customValidators = map[string]func(string) bool{
	"mnp_reservation_number": func(s string) bool {
		return mnpNumberPattern.MatchString(strings.ReplaceAll(s, "-", ""))
	},
	"mobile_number": phonePattern.MatchString,
	"eid":           eidPattern.MatchString,
}

// validateInput applies the step's rules. required may be forced by a "require" condition.
func validateInput(step *Step, input, option string, required bool) error {
	if option != "" && len(step.Options) > 0 {
		if _, ok := step.Option(option); !ok {
			return apperror.Validation("invalid option", map[string]string{
				"selectedOption": "must be one of the step's options",
			})
		}
	}

	value := strings.TrimSpace(input)
	if value == "" {
		value = option
	}

	rules := step.Validation
	if rules != nil && rules.Required {
		required = true
	}

	if value == "" {
		if required {
			return apperror.Validation(message(rules, "this step requires an answer"), map[string]string{
				"userInput": "required",
			})
		}
		return nil
	}

	if rules == nil {
		return nil
	}
	if rules.pattern != nil && !rules.pattern.MatchString(value) {
		return apperror.Validation(message(rules, "answer has an invalid format"), map[string]string{
			"userInput": "pattern",
		})
	}
	if rules.Custom != "" {
		if fn, ok := customValidators[rules.Custom]; ok && !fn(value) {
			return apperror.Validation(message(rules, "answer failed validation"), map[string]string{
				"userInput": rules.Custom,
			})
		}
	}
	return nil
}

func message(rules *ValidationRules, fallback string) string {
	if rules != nil && rules.Message != "" {
		return rules.Message
	}
	return fallback
}
