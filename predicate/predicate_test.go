package predicate

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		operator Operator
		value    interface{}
		wantErr  bool
	}{
		{name: "scalar", field: "age", operator: GreaterEqual, value: 30},
		{name: "string", field: "name", operator: Equal, value: "bob"},
		{name: "time", field: "created", operator: LessThan, value: time.Unix(0, 0)},
		{name: "in list", field: "age", operator: In, value: []int{1, 2}},
		{name: "empty field", field: " ", operator: Equal, value: 1, wantErr: true},
		{name: "unknown operator", field: "age", operator: Operator("like"), value: 1, wantErr: true},
		{name: "nil value", field: "age", operator: Equal, value: nil, wantErr: true},
		{name: "in with scalar", field: "age", operator: In, value: 1, wantErr: true},
		{name: "empty in", field: "age", operator: In, value: []string{}, wantErr: true},
		{name: "in with nested list", field: "age", operator: In, value: []interface{}{[]int{1}}, wantErr: true},
		{name: "eq with list", field: "age", operator: Equal, value: []int{1}, wantErr: true},
		{name: "unsupported type", field: "age", operator: Equal, value: struct{}{}, wantErr: true},
		{name: "nan", field: "score", operator: GreaterThan, value: math.NaN(), wantErr: true},
		{name: "infinity", field: "score", operator: LessThan, value: math.Inf(1), wantErr: true},
		{name: "float32 infinity", field: "score", operator: LessThan, value: float32(math.Inf(-1)), wantErr: true},
		{name: "infinity in list", field: "score", operator: In, value: []float64{1, math.Inf(-1)}, wantErr: true},
		{name: "float", field: "score", operator: LessThan, value: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.field, tt.operator, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPredicate_InIsCopied(t *testing.T) {
	values := []int{1, 2, 3}
	p := MustNew("id", In, values)
	values[0] = 100

	assert.Equal(t, []interface{}{1, 2, 3}, p.Value())

	out := p.Values()
	out[0] = 100
	assert.Equal(t, []interface{}{1, 2, 3}, p.Values())
}

func TestParseOperator(t *testing.T) {
	tests := map[string]Operator{
		"eq":  Equal,
		"EQ":  Equal,
		"=":   Equal,
		"==":  Equal,
		"!=":  NotEqual,
		"<>":  NotEqual,
		"neq": NotEqual,
		"<":   LessThan,
		"lte": LessEqual,
		">":   GreaterThan,
		">=":  GreaterEqual,
		"In":  In,
	}
	for text, want := range tests {
		got, err := ParseOperator(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}

	_, err := ParseOperator("like")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	record := map[string]interface{}{
		"age":     30,
		"score":   2.5,
		"name":    "bob",
		"active":  true,
		"created": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		"big":     uint64(18446744073709551615),
	}
	tests := []struct {
		name      string
		predicate Predicate
		want      bool
	}{
		{name: "gte boundary accepts", predicate: MustNew("age", GreaterEqual, 30), want: true},
		{name: "gte rejects", predicate: MustNew("age", GreaterEqual, 31), want: false},
		{name: "gt boundary rejects", predicate: MustNew("age", GreaterThan, 30), want: false},
		{name: "lt across kinds", predicate: MustNew("age", LessThan, 30.5), want: true},
		{name: "lte float", predicate: MustNew("score", LessEqual, 2.5), want: true},
		{name: "eq int64 vs int", predicate: MustNew("age", Equal, int64(30)), want: true},
		{name: "neq", predicate: MustNew("name", NotEqual, "alice"), want: true},
		{name: "neq same", predicate: MustNew("name", NotEqual, "bob"), want: false},
		{name: "string order", predicate: MustNew("name", LessThan, "carl"), want: true},
		{name: "in", predicate: MustNew("age", In, []int{10, 30}), want: true},
		{name: "not in", predicate: MustNew("age", In, []int{10, 20}), want: false},
		{name: "bool eq", predicate: MustNew("active", Equal, true), want: true},
		{name: "bool neq", predicate: MustNew("active", NotEqual, false), want: true},
		{name: "bool ordering is meaningless", predicate: MustNew("active", GreaterThan, false), want: false},
		{name: "time", predicate: MustNew("created", GreaterEqual, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)), want: true},
		{name: "missing field", predicate: MustNew("missing", Equal, 1), want: false},
		{name: "incomparable kinds", predicate: MustNew("name", Equal, 1), want: false},
		{name: "incomparable kinds with neq", predicate: MustNew("name", NotEqual, 1), want: false},
		{name: "huge unsigned", predicate: MustNew("big", GreaterThan, 1), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.predicate, record))
		})
	}
}

func TestEvaluateAll(t *testing.T) {
	predicates := []Predicate{
		MustNew("age", GreaterEqual, 18),
		MustNew("name", Equal, "bob"),
	}
	assert.True(t, EvaluateAll(predicates, map[string]interface{}{"age": 20, "name": "bob"}))
	assert.False(t, EvaluateAll(predicates, map[string]interface{}{"age": 17, "name": "bob"}))
	assert.True(t, EvaluateAll(nil, map[string]interface{}{}))
}

func TestCheck(t *testing.T) {
	available := NewOperators(Equal, In)
	before := testutil.ToFloat64(rejectedPredicates.WithLabelValues("test", string(NotEqual)))

	err := Check("test", available, []Predicate{
		MustNew("a", Equal, 1),
		MustNew("b", NotEqual, 2),
	})
	require.Error(t, err)

	var unsupported *UnsupportedFilterError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "b", unsupported.Predicate.Field())
	assert.Equal(t, before+1, testutil.ToFloat64(rejectedPredicates.WithLabelValues("test", string(NotEqual))))

	assert.NoError(t, Check("test", available, []Predicate{MustNew("a", In, []int{1})}))
}

func TestFromConfig(t *testing.T) {
	got, err := FromConfig([]interface{}{
		map[string]interface{}{"field": "age", "operator": ">=", "value": 30},
		map[string]interface{}{"field": "tag", "operator": "in", "value": []interface{}{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []Predicate{
		MustNew("age", GreaterEqual, 30),
		MustNew("tag", In, []interface{}{"a", "b"}),
	}, got)

	_, err = FromConfig([]interface{}{map[string]interface{}{"field": "age", "operator": "~", "value": 1}})
	assert.Error(t, err)

	_, err = FromConfig([]interface{}{"age >= 30"})
	assert.Error(t, err)
}
