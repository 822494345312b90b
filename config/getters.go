package config

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("field not found")

type Option func(options *options)

type options struct {
	withDefault  bool
	defaultValue interface{}
}

func getOptions(opts ...Option) *options {
	defaultOptions := &options{
		withDefault:  false,
		defaultValue: nil,
	}

	for _, opt := range opts {
		opt(defaultOptions)
	}

	return defaultOptions
}

func WithDefault(value interface{}) Option {
	return func(options *options) {
		options.withDefault = true
		options.defaultValue = value
	}
}

// Has reports whether the potentially nested field is present and non-nil.
func Has(config map[string]interface{}, field string) bool {
	out, err := GetInterface(config, field)
	return err == nil && out != nil
}

// GetInterface get's the given potentially nested field irrelevant of it's type.
// This will recursively descend into submaps.
func GetInterface(config map[string]interface{}, field string, opts ...Option) (interface{}, error) {
	options := getOptions(opts...)
	if element, ok := config[field]; ok {
		return element, nil
	}

	i := strings.Index(field, ".")
	if i == -1 {
		if options.withDefault {
			return options.defaultValue, nil
		}
		return nil, ErrNotFound
	}

	element, ok := config[field[:i]]
	if options.withDefault && !ok {
		return options.defaultValue, nil
	}
	if !ok {
		return nil, ErrNotFound
	}
	submap, ok := element.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%v should be a map, got: %v", field[:i], reflect.TypeOf(element))
	}

	out, err := GetInterface(submap, field[i+1:], opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get interface from %v", field[i+1:])
	}

	return out, nil
}

// GetInterfaceList gets a list from the given field.
func GetInterfaceList(config map[string]interface{}, field string, opts ...Option) ([]interface{}, error) {
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.([]interface{}), nil
		}
		return nil, errors.Wrapf(err, "couldn't get interface{}")
	}

	if out == nil {
		return nil, nil
	}

	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, errors.Errorf("expected list, got %v", reflect.TypeOf(out))
	}
	outTable := make([]interface{}, v.Len())
	for i := range outTable {
		outTable[i] = v.Index(i).Interface()
	}

	return outTable, nil
}

// GetMap gets a sub-map from the given field.
func GetMap(config map[string]interface{}, field string, opts ...Option) (map[string]interface{}, error) {
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(map[string]interface{}), nil
		}
		return nil, errors.Wrapf(err, "couldn't get interface{}")
	}

	outMap, ok := out.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("expected map, got %v", reflect.TypeOf(out))
	}

	return outMap, nil
}

// GetString gets a string from the given field.
func GetString(config map[string]interface{}, field string, opts ...Option) (string, error) {
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(string), nil
		}
		return "", errors.Wrapf(err, "couldn't get interface{}")
	}

	outString, ok := out.(string)
	if !ok {
		return "", errors.Errorf("expected string, got %v", reflect.TypeOf(out))
	}

	return outString, nil
}

// GetStringList gets a string list from the given field.
// A single string is split on commas, so "a,b" and [a, b] are equivalent.
func GetStringList(config map[string]interface{}, field string, opts ...Option) ([]string, error) {
	options := getOptions(opts...)
	if s, err := GetString(config, field); err == nil {
		return splitList(s), nil
	}

	out, err := GetInterfaceList(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.([]string), nil
		}
		return nil, errors.Wrapf(err, "couldn't get []interface{}")
	}

	var outStrings []string

	for i := range out {
		outString, ok := out[i].(string)
		if !ok {
			return nil, errors.Errorf("expected string slice, got %v at index %v", reflect.TypeOf(out[i]), i)
		}
		outStrings = append(outStrings, outString)
	}

	return outStrings, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetInt gets an int from the given field.
func GetInt(config map[string]interface{}, field string, opts ...Option) (int, error) {
	options := getOptions(opts...)
	out, err := GetInt64(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(int), nil
		}
		return 0, err
	}
	if out > math.MaxInt || out < math.MinInt {
		return 0, errors.Errorf("%d overflows int", out)
	}

	return int(out), nil
}

// GetInt64 gets an int64 from the given field.
// Integral floats and decimal strings are accepted, since bags decoded from json or
// string-only sources don't carry Go integer types.
func GetInt64(config map[string]interface{}, field string, opts ...Option) (int64, error) {
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(int64), nil
		}
		return 0, errors.Wrapf(err, "couldn't get interface{}")
	}

	switch out := out.(type) {
	case int:
		return int64(out), nil
	case int32:
		return int64(out), nil
	case int64:
		return out, nil
	case uint32:
		return int64(out), nil
	case float64:
		if out != math.Trunc(out) || out >= math.MaxInt64 || out < math.MinInt64 {
			return 0, errors.Errorf("expected integer, got %v", out)
		}
		return int64(out), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "couldn't parse integer")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("expected int, got %v", reflect.TypeOf(out))
	}
}

// GetBool gets a bool from the given field.
func GetBool(config map[string]interface{}, field string, opts ...Option) (bool, error) {
	options := getOptions(opts...)
	out, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(bool), nil
		}
		return false, errors.Wrapf(err, "couldn't get interface{}")
	}

	switch out := out.(type) {
	case bool:
		return out, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(out))
		if err != nil {
			return false, errors.Wrapf(err, "couldn't parse bool")
		}
		return parsed, nil
	default:
		return false, errors.Errorf("expected bool, got %v", reflect.TypeOf(out))
	}
}

// GetStringMap gets a map of strings from the given field, stringifying scalar values.
func GetStringMap(config map[string]interface{}, field string, opts ...Option) (map[string]string, error) {
	options := getOptions(opts...)
	out, err := GetMap(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(map[string]string), nil
		}
		return nil, err
	}

	outMap := make(map[string]string, len(out))
	for k, v := range out {
		s, err := Stringify(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for %s", k)
		}
		outMap[k] = s
	}
	return outMap, nil
}

// Stringify renders a scalar bag value as a string.
func Stringify(value interface{}) (string, error) {
	switch value := value.(type) {
	case string:
		return value, nil
	case bool:
		return strconv.FormatBool(value), nil
	case int:
		return strconv.Itoa(value), nil
	case int64:
		return strconv.FormatInt(value, 10), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		return "", errors.Errorf("expected scalar, got %v", reflect.TypeOf(value))
	}
}
