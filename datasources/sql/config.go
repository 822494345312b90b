package sql

import (
	"fmt"
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/connector"
)

// Alias of the explicit query when filters or partitions are applied on top of it.
const queryAlias = "connplan_src"

// Config is the relational connector configuration.
type Config struct {
	*connector.Base[*Config, *Native]

	database        string
	table           string
	query           string
	driverClass     string
	partitionColumn string
}

func New(mode connector.Mode, shape connector.EntityShape) *Config {
	c := &Config{}
	c.Base = connector.NewBase[*Config, *Native](c, connector.SQL, mode, shape, c.validate, c.build)
	c.SetDefaultBounds(0, math.MaxInt32)
	return c
}

func (c *Config) Database(database string) *Config {
	return c.Mutate("database", func() {
		c.database = database
	})
}

func (c *Config) Table(table string) *Config {
	return c.Mutate("table", func() {
		c.table = table
	})
}

// Query sets an explicit query, used instead of selecting the whole table.
func (c *Config) Query(query string) *Config {
	return c.Mutate("query", func() {
		c.query = query
	})
}

// DriverClass sets the driver identity, either a dialect name or a JDBC driver class name.
func (c *Config) DriverClass(driverClass string) *Config {
	return c.Mutate("driverClass", func() {
		c.driverClass = driverClass
	})
}

// PartitionColumn sets the integer column partition ranges apply to.
func (c *Config) PartitionColumn(column string) *Config {
	return c.Mutate("partitionColumn", func() {
		c.partitionColumn = column
	})
}

var bagKeys = []string{"database", "table", "query", "driverClass", "partitionColumn"}

// InitializeFrom loads the configuration from a generic key/value bag and initializes it.
// A bag that fails to load leaves the configuration unchanged.
func (c *Config) InitializeFrom(bag map[string]interface{}) (*Config, error) {
	if err := c.Load(bag, c.decode, bagKeys...); err != nil {
		return c, err
	}
	return c.Initialize()
}

func (c *Config) decode(bag map[string]interface{}) (func(), error) {
	fields := map[string]*string{
		"database":        &c.database,
		"table":           &c.table,
		"query":           &c.query,
		"driverClass":     &c.driverClass,
		"partitionColumn": &c.partitionColumn,
	}
	values := map[string]string{}
	for _, key := range bagKeys {
		if !config.Has(bag, key) {
			continue
		}
		value, err := config.GetString(bag, key)
		if err != nil {
			return nil, errors.Wrap(connector.NewConfigurationError(connector.SQL, key, "%s", err), "couldn't load configuration")
		}
		values[key] = value
	}

	return func() {
		for key, value := range values {
			*fields[key] = value
		}
	}, nil
}

func (c *Config) bounded(common connector.Common) bool {
	return common.Partitions > 1 || common.BoundsSet
}

func (c *Config) validate(common connector.Common) error {
	if common.Port <= 0 {
		return connector.NewConfigurationError(connector.SQL, "port", "must be specified")
	}
	if c.driverClass == "" {
		return connector.NewConfigurationError(connector.SQL, "driverClass", "must be specified")
	}
	if _, err := GetTemplate(c.driverClass); err != nil {
		return connector.NewConfigurationError(connector.SQL, "driverClass", "%s", err)
	}
	if c.database == "" {
		return connector.NewConfigurationError(connector.SQL, "database", "must be specified")
	}
	if c.table == "" {
		return connector.NewConfigurationError(connector.SQL, "table", "must be specified")
	}
	if !validIdentifier(c.table) {
		return connector.NewConfigurationError(connector.SQL, "table", "%q is not a plain table name", c.table)
	}
	if common.Username == "" {
		return connector.NewConfigurationError(connector.SQL, "username", "must be specified")
	}
	for _, column := range common.Projection {
		if !validIdentifier(column) {
			return connector.NewConfigurationError(connector.SQL, "inputColumns", "%q is not a plain column name", column)
		}
	}
	if strings.TrimSpace(c.query) != "" && len(common.Projection) > 0 {
		return connector.NewConfigurationError(connector.SQL, "inputColumns", "can't be combined with an explicit query")
	}

	if c.Mode() == connector.Write {
		if strings.TrimSpace(c.query) != "" {
			return connector.NewConfigurationError(connector.SQL, "query", "write configurations can't have a query")
		}
		if len(common.Projection) == 0 {
			return connector.NewConfigurationError(connector.SQL, "inputColumns", "write configurations must list the written columns")
		}
		return nil
	}

	if c.bounded(common) && c.partitionColumn == "" {
		return connector.NewConfigurationError(connector.SQL, "partitionColumn", "must be specified when partitioning")
	}
	if c.partitionColumn != "" && !validIdentifier(c.partitionColumn) {
		return connector.NewConfigurationError(connector.SQL, "partitionColumn", "%q is not a plain column name", c.partitionColumn)
	}
	return nil
}

func (c *Config) build(common connector.Common) (*Native, error) {
	template, err := GetTemplate(c.driverClass)
	if err != nil {
		return nil, err
	}

	location := Location{
		Host:     common.Hosts[0],
		Port:     common.Port,
		User:     common.Username,
		Password: common.Password,
		Database: c.database,
		Params:   common.Options,
	}
	dsn, driverName, err := template.GetDSNAndDriverName(location)
	if err != nil {
		return nil, connector.NewConfigurationError(connector.SQL, "", "%s", err)
	}

	native := &Native{
		Dialect:    DialectName(c.driverClass),
		DriverName: driverName,
		DSN:        dsn,
		URL:        template.GetURL(location),
		Table:      c.table,
		Columns:    common.Projection,
	}

	if c.Mode() == connector.Write {
		native.Query = sqlx.Rebind(template.GetBindType(), insertStatement(c.table, common.Projection))
		native.splits = []connector.Split{{Index: 0}}
		native.Statements = []Statement{{Split: native.splits[0], Query: native.Query}}
		return native, nil
	}

	clause, args, err := Translate(template, common.Predicates)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't translate filters")
	}

	bounded := c.bounded(common)
	base := c.baseQuery(common, clause != "" || bounded)

	splits, err := connector.PlanSplits(common, bounded)
	if err != nil {
		return nil, err
	}

	native.Query = sqlx.Rebind(template.GetBindType(), where(base, clause))
	native.Args = args
	native.splits = splits
	native.Statements = make([]Statement, len(splits))
	for i, split := range splits {
		switch {
		case split.Empty():
			native.Statements[i] = Statement{Split: split}
		case split.Bounded:
			rangeClause := fmt.Sprintf("%s >= ? AND %s <= ?", c.partitionColumn, c.partitionColumn)
			splitArgs := append(append(make([]interface{}, 0, len(args)+2), args...), split.Range.Lower, split.Range.Upper)
			native.Statements[i] = Statement{
				Split: split,
				Query: sqlx.Rebind(template.GetBindType(), where(base, and(clause, rangeClause))),
				Args:  splitArgs,
			}
		default:
			native.Statements[i] = Statement{Split: split, Query: native.Query, Args: args}
		}
	}
	return native, nil
}

// baseQuery returns the query filters and ranges are applied to.
// An explicit query is wrapped in a sub-select if anything has to be applied to it.
func (c *Config) baseQuery(common connector.Common, restricted bool) string {
	query := strings.TrimRight(strings.TrimSpace(c.query), ";")
	if query == "" {
		columns := "*"
		if len(common.Projection) > 0 {
			columns = strings.Join(common.Projection, ", ")
		}
		return fmt.Sprintf("SELECT %s FROM %s", columns, c.table)
	}
	if !restricted {
		return query
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS %s", query, queryAlias)
}

func insertStatement(table string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
}
