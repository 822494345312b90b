package cassandra

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/predicate"
)

// NEQ has no CQL relation, it's rejected instead of being dropped.
var availableFilters = predicate.NewOperators(
	predicate.Equal,
	predicate.LessThan,
	predicate.LessEqual,
	predicate.GreaterThan,
	predicate.GreaterEqual,
	predicate.In,
)

var identifierRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

// Clause is a single CQL relation with its bound value.
type Clause struct {
	Column   string             `yaml:"column"`
	Operator predicate.Operator `yaml:"operator"`
	Value    interface{}        `yaml:"value"`
}

// CQL renders the relation with a placeholder for its value.
// IN binds the whole list to a single placeholder.
func (c Clause) CQL() string {
	return fmt.Sprintf("%s %s ?", c.Column, relationToCQL(c.Operator))
}

func relationToCQL(op predicate.Operator) string {
	switch op {
	case predicate.Equal:
		return "="
	case predicate.LessThan:
		return "<"
	case predicate.LessEqual:
		return "<="
	case predicate.GreaterThan:
		return ">"
	case predicate.GreaterEqual:
		return ">="
	case predicate.In:
		return "IN"
	default:
		panic("invalid cql relation")
	}
}

// Translate maps each predicate to a CQL relation, in order.
func Translate(predicates []predicate.Predicate) ([]Clause, error) {
	if err := predicate.Check(string(connector.Cassandra), availableFilters, predicates); err != nil {
		return nil, err
	}

	clauses := make([]Clause, len(predicates))
	for i, p := range predicates {
		if !validIdentifier(p.Field()) {
			return nil, &predicate.UnsupportedFilterError{
				Backend:   string(connector.Cassandra),
				Predicate: p,
				Reason:    "field is not a plain column name",
			}
		}
		clauses[i] = Clause{
			Column:   p.Field(),
			Operator: p.Operator(),
			Value:    p.Value(),
		}
	}
	return clauses, nil
}

// Where joins the clauses with AND and returns their bound values.
func Where(clauses []Clause) (string, []interface{}) {
	parts := make([]string, len(clauses))
	args := make([]interface{}, len(clauses))
	for i := range clauses {
		parts[i] = clauses[i].CQL()
		args[i] = clauses[i].Value
	}
	return strings.Join(parts, " AND "), args
}

func tokenClause(partitionKey []string) string {
	token := fmt.Sprintf("token(%s)", strings.Join(partitionKey, ", "))
	return fmt.Sprintf("%s >= ? AND %s <= ?", token, token)
}
