package predicate

import (
	"fmt"
)

// Operators is the set of operators a backend is able to express natively.
type Operators map[Operator]struct{}

func NewOperators(ops ...Operator) Operators {
	out := make(Operators, len(ops))
	for _, op := range ops {
		out[op] = struct{}{}
	}
	return out
}

func (ops Operators) Supports(op Operator) bool {
	_, ok := ops[op]
	return ok
}

// UnsupportedFilterError is returned when a backend can't express a predicate.
// Translators never drop a predicate silently, they fail with this error instead.
type UnsupportedFilterError struct {
	Backend   string
	Predicate Predicate
	Reason    string
}

func (e *UnsupportedFilterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s can't express filter '%s': %s", e.Backend, e.Predicate, e.Reason)
	}
	return fmt.Sprintf("%s can't express filter '%s'", e.Backend, e.Predicate)
}

// Check verifies that every predicate uses an operator from the available set.
func Check(backend string, available Operators, predicates []Predicate) error {
	for i := range predicates {
		if !available.Supports(predicates[i].operator) {
			rejectedPredicates.WithLabelValues(backend, string(predicates[i].operator)).Inc()
			return &UnsupportedFilterError{
				Backend:   backend,
				Predicate: predicates[i],
				Reason:    fmt.Sprintf("operator %s is not supported", predicates[i].operator),
			}
		}
	}
	return nil
}
