package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/predicate"
)

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validIdentifier(name string) bool {
	return identifierRegexp.MatchString(name)
}

// Translate turns the predicates into a conjunctive WHERE clause body with ? placeholders.
// IN lists are expanded into a placeholder per element.
// An empty predicate list yields an empty clause.
func Translate(template SQLSourceTemplate, predicates []predicate.Predicate) (string, []interface{}, error) {
	if err := predicate.Check(string(connector.SQL), template.GetAvailableFilters(), predicates); err != nil {
		return "", nil, err
	}
	if len(predicates) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, len(predicates))
	args := make([]interface{}, len(predicates))
	for i := range predicates {
		if !validIdentifier(predicates[i].Field()) {
			return "", nil, &predicate.UnsupportedFilterError{
				Backend:   string(connector.SQL),
				Predicate: predicates[i],
				Reason:    "field is not a plain column name",
			}
		}
		clauses[i] = predicateToSQL(predicates[i])
		args[i] = predicates[i].Value()
	}

	clause, args, err := sqlx.In(strings.Join(clauses, " AND "), args...)
	if err != nil {
		return "", nil, errors.Wrap(err, "couldn't expand IN lists")
	}
	return clause, args, nil
}

func predicateToSQL(p predicate.Predicate) string {
	if p.Operator() == predicate.In {
		return fmt.Sprintf("%s IN (?)", p.Field())
	}
	return fmt.Sprintf("%s %s ?", p.Field(), relationToSQL(p.Operator()))
}

func relationToSQL(op predicate.Operator) string {
	switch op {
	case predicate.Equal:
		return "="
	case predicate.NotEqual:
		return "<>"
	case predicate.GreaterThan:
		return ">"
	case predicate.LessThan:
		return "<"
	case predicate.GreaterEqual:
		return ">="
	case predicate.LessEqual:
		return "<="
	case predicate.In:
		return "IN"
	default:
		panic("invalid predicate operator")
	}
}

// and joins non-empty clauses with AND.
func and(clauses ...string) string {
	var nonEmpty []string
	for _, clause := range clauses {
		if clause != "" {
			nonEmpty = append(nonEmpty, clause)
		}
	}
	return strings.Join(nonEmpty, " AND ")
}

func where(query, clause string) string {
	if clause == "" {
		return query
	}
	return fmt.Sprintf("%s WHERE %s", query, clause)
}
