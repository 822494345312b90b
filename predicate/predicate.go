package predicate

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Operator describes a comparison operator.
type Operator string

const (
	Equal        Operator = "eq"
	NotEqual     Operator = "neq"
	LessThan     Operator = "lt"
	LessEqual    Operator = "lte"
	GreaterThan  Operator = "gt"
	GreaterEqual Operator = "gte"
	In           Operator = "in"
)

var AllOperators = []Operator{Equal, NotEqual, LessThan, LessEqual, GreaterThan, GreaterEqual, In}

var operatorSymbols = map[string]Operator{
	"=":  Equal,
	"==": Equal,
	"!=": NotEqual,
	"<>": NotEqual,
	"<":  LessThan,
	"<=": LessEqual,
	">":  GreaterThan,
	">=": GreaterEqual,
}

// ParseOperator accepts both operator names (eq, gte, in...) and symbols (=, >=...).
func ParseOperator(text string) (Operator, error) {
	text = strings.TrimSpace(text)
	if op, ok := operatorSymbols[text]; ok {
		return op, nil
	}
	op := Operator(strings.ToLower(text))
	if !op.Valid() {
		return "", errors.Errorf("invalid operator: %s", text)
	}
	return op, nil
}

func (op Operator) Valid() bool {
	for _, known := range AllOperators {
		if op == known {
			return true
		}
	}
	return false
}

func (op Operator) String() string {
	return strings.ToUpper(string(op))
}

// Predicate is a single field/operator/value comparison.
// It's immutable once constructed.
type Predicate struct {
	field    string
	operator Operator
	value    interface{}
}

// New validates and constructs a predicate.
// IN requires a non-empty slice or array, every other operator requires a scalar.
func New(field string, operator Operator, value interface{}) (Predicate, error) {
	if strings.TrimSpace(field) == "" {
		return Predicate{}, errors.New("predicate field can't be empty")
	}
	if !operator.Valid() {
		return Predicate{}, errors.Errorf("invalid operator %q for field %s", string(operator), field)
	}
	if value == nil {
		return Predicate{}, errors.Errorf("predicate on field %s has a nil value", field)
	}

	if operator == In {
		values, ok := toList(value)
		if !ok {
			return Predicate{}, errors.Errorf("IN predicate on field %s expects a list, got %T", field, value)
		}
		if len(values) == 0 {
			return Predicate{}, errors.Errorf("IN predicate on field %s expects at least one value", field)
		}
		for i := range values {
			if err := checkScalar(values[i]); err != nil {
				return Predicate{}, errors.Wrapf(err, "invalid IN value on field %s at index %d", field, i)
			}
		}
		return Predicate{field: field, operator: operator, value: values}, nil
	}

	if err := checkScalar(value); err != nil {
		return Predicate{}, errors.Wrapf(err, "invalid value on field %s", field)
	}
	return Predicate{field: field, operator: operator, value: value}, nil
}

// MustNew is like New, but panics on invalid input.
func MustNew(field string, operator Operator, value interface{}) Predicate {
	p, err := New(field, operator, value)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Predicate) Field() string {
	return p.field
}

func (p Predicate) Operator() Operator {
	return p.operator
}

// Value returns the compared value. For IN it's a []interface{}, which must not be modified.
func (p Predicate) Value() interface{} {
	return p.value
}

// Values returns a copy of the IN list, or a single element list for other operators.
func (p Predicate) Values() []interface{} {
	if list, ok := p.value.([]interface{}); ok && p.operator == In {
		out := make([]interface{}, len(list))
		copy(out, list)
		return out
	}
	return []interface{}{p.value}
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.field, p.operator, p.value)
}

func toList(value interface{}) ([]interface{}, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte is a scalar for us.
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = v.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

func checkScalar(value interface{}) error {
	switch value := value.(type) {
	case float32:
		return checkFloat(float64(value))
	case float64:
		return checkFloat(value)
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		string, bool, time.Time:
		return nil
	case nil:
		return errors.New("nil value")
	default:
		return errors.Errorf("unsupported value type %T", value)
	}
}

// No backend has a literal for NaN or the infinities.
func checkFloat(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errors.Errorf("unsupported value %v", value)
	}
	return nil
}
