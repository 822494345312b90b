package predicate

import (
	"math"
	"strings"
	"time"
)

// Evaluate reports whether the record satisfies the predicate.
// Numbers compare numerically across integer and float kinds, strings lexicographically,
// times chronologically and booleans only by (in)equality.
// A missing field or values of incomparable kinds never satisfy a predicate.
func Evaluate(p Predicate, record map[string]interface{}) bool {
	actual, ok := record[p.field]
	if !ok || actual == nil {
		return false
	}

	switch p.operator {
	case In:
		for _, candidate := range p.value.([]interface{}) {
			if cmp, ok := compare(actual, candidate); ok && cmp == 0 {
				return true
			}
		}
		return false
	case NotEqual:
		cmp, ok := compare(actual, p.value)
		return ok && cmp != 0
	}

	cmp, ok := compare(actual, p.value)
	if !ok {
		return false
	}
	if _, isBool := actual.(bool); isBool && p.operator != Equal {
		return false
	}

	switch p.operator {
	case Equal:
		return cmp == 0
	case LessThan:
		return cmp < 0
	case LessEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterEqual:
		return cmp >= 0
	default:
		return false
	}
}

// EvaluateAll reports whether the record satisfies every predicate.
func EvaluateAll(predicates []Predicate, record map[string]interface{}) bool {
	for i := range predicates {
		if !Evaluate(predicates[i], record) {
			return false
		}
	}
	return true
}

type number struct {
	integer bool
	i       int64
	f       float64
}

func toNumber(value interface{}) (number, bool) {
	switch value := value.(type) {
	case int:
		return number{integer: true, i: int64(value)}, true
	case int8:
		return number{integer: true, i: int64(value)}, true
	case int16:
		return number{integer: true, i: int64(value)}, true
	case int32:
		return number{integer: true, i: int64(value)}, true
	case int64:
		return number{integer: true, i: value}, true
	case uint:
		return fromUint(uint64(value)), true
	case uint8:
		return number{integer: true, i: int64(value)}, true
	case uint16:
		return number{integer: true, i: int64(value)}, true
	case uint32:
		return number{integer: true, i: int64(value)}, true
	case uint64:
		return fromUint(value), true
	case float32:
		return number{f: float64(value)}, true
	case float64:
		return number{f: value}, true
	default:
		return number{}, false
	}
}

func fromUint(value uint64) number {
	if value > math.MaxInt64 {
		return number{f: float64(value)}
	}
	return number{integer: true, i: int64(value)}
}

func (n number) float() float64 {
	if n.integer {
		return float64(n.i)
	}
	return n.f
}

func compareNumbers(left, right number) int {
	if left.integer && right.integer {
		switch {
		case left.i < right.i:
			return -1
		case left.i > right.i:
			return 1
		default:
			return 0
		}
	}
	l, r := left.float(), right.float()
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func compare(left, right interface{}) (int, bool) {
	if l, ok := toNumber(left); ok {
		r, ok := toNumber(right)
		if !ok {
			return 0, false
		}
		return compareNumbers(l, r), true
	}

	switch left := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(left, r), true
	case bool:
		r, ok := right.(bool)
		if !ok {
			return 0, false
		}
		if left == r {
			return 0, true
		}
		return 1, true
	case time.Time:
		r, ok := right.(time.Time)
		if !ok {
			return 0, false
		}
		return left.Compare(r), true
	default:
		return 0, false
	}
}
