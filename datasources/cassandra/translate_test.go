package cassandra

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/predicate"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name       string
		predicates []predicate.Predicate
		want       string
		wantArgs   []interface{}
		wantErr    bool
	}{
		{
			name:       "no predicates",
			predicates: nil,
			want:       "",
			wantArgs:   []interface{}{},
		},
		{
			name: "range and equality",
			predicates: []predicate.Predicate{
				predicate.MustNew("age", predicate.GreaterEqual, 30),
				predicate.MustNew("age", predicate.LessThan, 40),
				predicate.MustNew("name", predicate.Equal, "bob"),
			},
			want:     "age >= ? AND age < ? AND name = ?",
			wantArgs: []interface{}{30, 40, "bob"},
		},
		{
			name: "set membership",
			predicates: []predicate.Predicate{
				predicate.MustNew("id", predicate.In, []int64{1, 2}),
			},
			want:     "id IN ?",
			wantArgs: []interface{}{[]interface{}{int64(1), int64(2)}},
		},
		{
			name: "inequality",
			predicates: []predicate.Predicate{
				predicate.MustNew("id", predicate.NotEqual, 1),
			},
			wantErr: true,
		},
		{
			name: "quoted field",
			predicates: []predicate.Predicate{
				predicate.MustNew(`"Name"`, predicate.Equal, 1),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := Translate(tt.predicates)
			if tt.wantErr {
				var unsupported *predicate.UnsupportedFilterError
				require.ErrorAs(t, err, &unsupported)
				return
			}
			require.NoError(t, err)
			require.Len(t, clauses, len(tt.predicates))

			where, args := Where(clauses)
			assert.Equal(t, tt.want, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

// evaluateCQL interprets the WHERE part of a generated statement against a row.
func evaluateCQL(t *testing.T, query string, args []interface{}, row map[string]interface{}) bool {
	t.Helper()
	i := strings.Index(query, " WHERE ")
	if i == -1 {
		return true
	}
	where := strings.TrimSuffix(query[i+len(" WHERE "):], " ALLOW FILTERING")

	relations := strings.Split(where, " AND ")
	require.Len(t, args, len(relations))
	for j, relation := range relations {
		parts := strings.Fields(relation)
		require.Len(t, parts, 3, relation)
		require.Equal(t, "?", parts[2])

		value, ok := row[parts[0]]
		if !ok {
			return false
		}
		if !evaluateRelation(t, value, parts[1], args[j]) {
			return false
		}
	}
	return true
}

func evaluateRelation(t *testing.T, value interface{}, relation string, arg interface{}) bool {
	if relation == "IN" {
		list := reflect.ValueOf(arg)
		for i := 0; i < list.Len(); i++ {
			if compareCQL(t, value, list.Index(i).Interface()) == 0 {
				return true
			}
		}
		return false
	}

	cmp := compareCQL(t, value, arg)
	switch relation {
	case "=":
		return cmp == 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	t.Fatalf("unknown relation %s", relation)
	return false
}

func compareCQL(t *testing.T, left, right interface{}) int {
	if l, ok := left.(string); ok {
		return strings.Compare(l, right.(string))
	}
	l, r := toFloat(t, left), toFloat(t, right)
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

func toFloat(t *testing.T, v interface{}) float64 {
	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(value.Int())
	case reflect.Float32, reflect.Float64:
		return value.Float()
	}
	t.Fatalf("unexpected value %v", v)
	return 0
}

func TestTranslate_Fidelity(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": int64(1), "name": "alice", "age": 29},
		{"id": int64(2), "name": "bob", "age": 30},
		{"id": int64(3), "name": "carol", "age": 41},
		{"id": int64(4), "name": "dave", "age": 30},
	}
	tests := [][]predicate.Predicate{
		{predicate.MustNew("age", predicate.GreaterEqual, 30)},
		{predicate.MustNew("age", predicate.GreaterThan, 30)},
		{predicate.MustNew("age", predicate.LessEqual, 29.5)},
		{predicate.MustNew("name", predicate.LessThan, "bz")},
		{predicate.MustNew("id", predicate.In, []int{1, 3, 9})},
		{
			predicate.MustNew("age", predicate.Equal, 30),
			predicate.MustNew("name", predicate.In, []string{"dave", "erin"}),
		},
	}
	for i, predicates := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			c, err := New(connector.Read, connector.CellsShape()).
				Host("h1").Port(9042).Keyspace("ks").Table("people").
				Where(predicates...).
				Initialize()
			require.NoError(t, err)
			native, err := c.Native()
			require.NoError(t, err)

			for _, row := range rows {
				assert.Equal(t,
					predicate.EvaluateAll(predicates, row),
					evaluateCQL(t, native.Query, native.Args, row),
					"%s on %v", native.Query, row,
				)
			}
		})
	}
}
