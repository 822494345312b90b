package elasticsearch

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/predicate"
)

var availableFilters = predicate.NewOperators(predicate.AllOperators...)

// BaseQuery is the query filters get attached to.
// The zero value matches all documents.
type BaseQuery struct {
	// Search is a free text search, run as a query_string query.
	Search string
	// JSON is a query clause, or a whole request body with a query field.
	JSON string
}

// Translate builds the request body.
// Search requests have no filter-only form, so predicates are attached
// as a filter next to the base query, which matches all documents by default.
func Translate(base BaseQuery, predicates []predicate.Predicate) (string, error) {
	if err := predicate.Check(string(connector.Elasticsearch), availableFilters, predicates); err != nil {
		return "", err
	}

	var a fastjson.Arena
	query, request, err := baseClause(&a, base)
	if err != nil {
		return "", err
	}

	if len(predicates) > 0 {
		filters := a.NewArray()
		for i, p := range predicates {
			filter, err := filterClause(&a, p)
			if err != nil {
				return "", err
			}
			filters.SetArrayItem(i, filter)
		}

		must := a.NewArray()
		must.SetArrayItem(0, query)

		boolQuery := a.NewObject()
		boolQuery.Set("must", must)
		boolQuery.Set("filter", filters)

		query = a.NewObject()
		query.Set("bool", boolQuery)
	}

	body := a.NewObject()
	body.Set("query", query)
	// The rest of a request body, like size or sort, is kept as is.
	if request != nil {
		request.Visit(func(key []byte, v *fastjson.Value) {
			if string(key) != "query" {
				body.Set(string(key), v)
			}
		})
	}
	return body.String(), nil
}

// baseClause returns the query clause, and the request body it was taken out of, if any.
func baseClause(a *fastjson.Arena, base BaseQuery) (*fastjson.Value, *fastjson.Object, error) {
	switch {
	case strings.TrimSpace(base.JSON) != "":
		v, err := fastjson.Parse(base.JSON)
		if err != nil {
			return nil, nil, errors.Wrap(err, "couldn't parse query")
		}
		if v.Type() != fastjson.TypeObject {
			return nil, nil, errors.Errorf("query must be a json object, got %s", v.Type())
		}
		if inner := v.Get("query"); inner != nil {
			if inner.Type() != fastjson.TypeObject {
				return nil, nil, errors.Errorf("query must be a json object, got %s", inner.Type())
			}
			request, _ := v.Object()
			return inner, request, nil
		}
		return v, nil, nil

	case strings.TrimSpace(base.Search) != "":
		queryString := a.NewObject()
		queryString.Set("query", a.NewString(base.Search))
		out := a.NewObject()
		out.Set("query_string", queryString)
		return out, nil, nil

	default:
		out := a.NewObject()
		out.Set("match_all", a.NewObject())
		return out, nil, nil
	}
}

func filterClause(a *fastjson.Arena, p predicate.Predicate) (*fastjson.Value, error) {
	switch p.Operator() {
	case predicate.Equal:
		return fieldClause(a, "term", p.Field(), p.Value())

	case predicate.NotEqual:
		term, err := fieldClause(a, "term", p.Field(), p.Value())
		if err != nil {
			return nil, err
		}
		mustNot := a.NewArray()
		mustNot.SetArrayItem(0, term)
		boolQuery := a.NewObject()
		boolQuery.Set("must_not", mustNot)
		out := a.NewObject()
		out.Set("bool", boolQuery)
		return out, nil

	case predicate.LessThan, predicate.LessEqual, predicate.GreaterThan, predicate.GreaterEqual:
		value, err := jsonValue(a, p.Value())
		if err != nil {
			return nil, err
		}
		bounds := a.NewObject()
		bounds.Set(string(p.Operator()), value)
		field := a.NewObject()
		field.Set(p.Field(), bounds)
		out := a.NewObject()
		out.Set("range", field)
		return out, nil

	case predicate.In:
		values := a.NewArray()
		for i, item := range p.Values() {
			value, err := jsonValue(a, item)
			if err != nil {
				return nil, err
			}
			values.SetArrayItem(i, value)
		}
		field := a.NewObject()
		field.Set(p.Field(), values)
		out := a.NewObject()
		out.Set("terms", field)
		return out, nil
	}

	return nil, &predicate.UnsupportedFilterError{
		Backend:   string(connector.Elasticsearch),
		Predicate: p,
	}
}

func fieldClause(a *fastjson.Arena, kind, field string, value interface{}) (*fastjson.Value, error) {
	v, err := jsonValue(a, value)
	if err != nil {
		return nil, err
	}
	inner := a.NewObject()
	inner.Set(field, v)
	out := a.NewObject()
	out.Set(kind, inner)
	return out, nil
}

func jsonValue(a *fastjson.Arena, value interface{}) (*fastjson.Value, error) {
	switch value := value.(type) {
	case string:
		return a.NewString(value), nil
	case bool:
		if value {
			return a.NewTrue(), nil
		}
		return a.NewFalse(), nil
	case time.Time:
		return a.NewString(value.Format(time.RFC3339Nano)), nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.NewNumberString(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.NewNumberString(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		return a.NewNumberFloat64(v.Float()), nil
	case reflect.String:
		return a.NewString(v.String()), nil
	case reflect.Bool:
		if v.Bool() {
			return a.NewTrue(), nil
		}
		return a.NewFalse(), nil
	}
	return nil, errors.Errorf("unsupported value type %T", value)
}
