package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// evaluate checks one condition against the collected answers. Unknown operators evaluate false.
func evaluate(c Condition, data map[string]interface{}) bool {
	actual := data[c.Field]

	switch c.Operator {
	case OpEquals:
		return looseEqual(actual, c.Value)
	case OpNotEquals:
		return !looseEqual(actual, c.Value)
	case OpContains:
		if list, ok := actual.([]interface{}); ok {
			for _, v := range list {
				if looseEqual(v, c.Value) {
					return true
				}
			}
			return false
		}
		if actual == nil {
			return false
		}
		return strings.Contains(toString(actual), toString(c.Value))
	case OpGreaterThan, OpLessThan:
		a, okA := toFloat(actual)
		b, okB := toFloat(c.Value)
		if !okA || !okB {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a > b
		}
		return a < b
	}
	return false
}

func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return toString(a) == toString(b)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
