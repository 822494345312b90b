package predicate

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/cube2222/connplan/config"
)

// FromConfig decodes a list of {field, operator, value} maps, as found under queryFilter.
func FromConfig(items []interface{}) ([]Predicate, error) {
	out := make([]Predicate, 0, len(items))
	for i := range items {
		item, ok := items[i].(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("expected filter map, got %v at index %d", reflect.TypeOf(items[i]), i)
		}

		field, err := config.GetString(item, "field")
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't get field of filter with index %d", i)
		}
		operatorText, err := config.GetString(item, "operator")
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't get operator of filter with index %d", i)
		}
		operator, err := ParseOperator(operatorText)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter with index %d", i)
		}
		value, err := config.GetInterface(item, "value")
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't get value of filter with index %d", i)
		}

		p, err := New(field, operator, value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid filter with index %d", i)
		}
		out = append(out, p)
	}
	return out, nil
}
