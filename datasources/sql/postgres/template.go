package postgres

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx"
	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/datasources/sql"
	"github.com/cube2222/connplan/predicate"
)

// The name database/sql knows the pgx driver by.
const driverName = "pgx"

type PostgresTemplate struct{}

func (t *PostgresTemplate) GetAvailableFilters() predicate.Operators {
	return predicate.NewOperators(predicate.AllOperators...)
}

func (t *PostgresTemplate) GetDSNAndDriverName(location sql.Location) (string, string, error) {
	params := map[string]string{"sslmode": "disable"}
	for k, v := range location.Params {
		params[k] = v
	}

	// Build dsn
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("host=%s port=%d user=%s ", location.Host, location.Port, location.User))
	if location.Password != "" {
		sb.WriteString(fmt.Sprintf("password=%s ", location.Password))
	}
	sb.WriteString(fmt.Sprintf("dbname=%s", location.Database))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(" %s=%s", k, params[k]))
	}
	dsn := sb.String()

	if err := checkDSN(dsn, location); err != nil {
		return "", "", err
	}

	return dsn, driverName, nil
}

// checkDSN makes sure pgx reads the dsn back the way it was meant.
// Values containing whitespace would otherwise be silently cut.
func checkDSN(dsn string, location sql.Location) error {
	connConfig, err := pgx.ParseDSN(dsn)
	if err != nil {
		return errors.Wrap(err, "couldn't parse postgres dsn")
	}
	expected := pgx.ConnConfig{
		Host:     location.Host,
		Port:     uint16(location.Port),
		User:     location.User,
		Password: location.Password,
		Database: location.Database,
	}
	switch {
	case connConfig.Host != expected.Host:
		return errors.Errorf("host %q can't be used in a postgres dsn", location.Host)
	case connConfig.Port != expected.Port:
		return errors.Errorf("port %d can't be used in a postgres dsn", location.Port)
	case connConfig.User != expected.User:
		return errors.Errorf("user %q can't be used in a postgres dsn", location.User)
	case connConfig.Password != expected.Password:
		return errors.New("password can't be used in a postgres dsn")
	case connConfig.Database != expected.Database:
		return errors.Errorf("database %q can't be used in a postgres dsn", location.Database)
	}
	return nil
}

func (t *PostgresTemplate) GetURL(location sql.Location) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(location.User),
		Host:   location.Host + ":" + strconv.Itoa(location.Port),
		Path:   "/" + location.Database,
	}
	return u.String()
}

func (t *PostgresTemplate) GetBindType() int {
	return sqlx.DOLLAR
}

var template = &PostgresTemplate{}

func init() {
	sql.RegisterTemplate(template, "postgres", "postgresql", "pgx")
}
