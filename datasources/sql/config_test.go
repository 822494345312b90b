package sql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/datasources/sql"
	_ "github.com/cube2222/connplan/datasources/sql/mysql"
	_ "github.com/cube2222/connplan/datasources/sql/postgres"
	"github.com/cube2222/connplan/partition"
	"github.com/cube2222/connplan/predicate"
)

func postgresConfig() *sql.Config {
	return sql.New(connector.Read, connector.CellsShape()).
		Host("db.local").
		Port(5432).
		DriverClass("org.postgresql.Driver").
		Database("shop").
		Username("root").
		Password("toor")
}

func requireConfigurationError(t *testing.T, err error, field string) {
	t.Helper()
	var configErr *connector.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, field, configErr.Field)
}

func TestConfig_RequiresTable(t *testing.T) {
	c := postgresConfig()
	_, err := c.Initialize()
	requireConfigurationError(t, err, "table")
	assert.Equal(t, connector.Building, c.State())
}

func TestConfig_SynthesizesQuery(t *testing.T) {
	c, err := postgresConfig().Table("t").Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", native.Query)
	assert.Empty(t, native.Args)
	assert.Equal(t, "pgx", native.DriverName)
	assert.Equal(t, "postgresql", native.Dialect)
	assert.Equal(t, "postgres://root@db.local:5432/shop", native.URL)
	require.Len(t, native.Statements, 1)
	assert.Equal(t, "SELECT * FROM t", native.Statements[0].Query)
	assert.Equal(t, []connector.Split{{Index: 0}}, native.Splits())
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config func() *sql.Config
		field  string
	}{
		{
			name:   "no driver",
			config: func() *sql.Config { return postgresConfig().DriverClass("").Table("t") },
			field:  "driverClass",
		},
		{
			name:   "unknown dialect",
			config: func() *sql.Config { return postgresConfig().DriverClass("oracle.jdbc.OracleDriver").Table("t") },
			field:  "driverClass",
		},
		{
			name:   "no database",
			config: func() *sql.Config { return postgresConfig().Database("").Table("t") },
			field:  "database",
		},
		{
			name:   "no port",
			config: func() *sql.Config { return postgresConfig().Port(0).Table("t") },
			field:  "port",
		},
		{
			name:   "no username",
			config: func() *sql.Config { return postgresConfig().Username("").Password("").Table("t") },
			field:  "username",
		},
		{
			name:   "invalid table name",
			config: func() *sql.Config { return postgresConfig().Table("t; DROP TABLE t") },
			field:  "table",
		},
		{
			name:   "query with projection",
			config: func() *sql.Config { return postgresConfig().Table("t").Query("SELECT a FROM t").Select("a") },
			field:  "inputColumns",
		},
		{
			name:   "partitions without column",
			config: func() *sql.Config { return postgresConfig().Table("t").Partitions(4) },
			field:  "partitionColumn",
		},
		{
			name:   "bounds without column",
			config: func() *sql.Config { return postgresConfig().Table("t").Bounds(0, 10) },
			field:  "partitionColumn",
		},
		{
			name: "write without columns",
			config: func() *sql.Config {
				return sql.New(connector.Write, connector.CellsShape()).
					Host("db.local").Port(5432).DriverClass("postgres").Database("shop").Username("root").Table("t")
			},
			field: "inputColumns",
		},
		{
			name: "write with query",
			config: func() *sql.Config {
				return sql.New(connector.Write, connector.CellsShape()).
					Host("db.local").Port(5432).DriverClass("postgres").Database("shop").Username("root").
					Table("t").Query("SELECT 1")
			},
			field: "query",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.config().Initialize()
			requireConfigurationError(t, err, tt.field)
		})
	}
}

func TestConfig_Filters(t *testing.T) {
	c, err := postgresConfig().
		Table("users").
		Select("id", "name").
		Where(
			predicate.MustNew("age", predicate.GreaterEqual, 30),
			predicate.MustNew("name", predicate.In, []string{"a", "b"}),
			predicate.MustNew("status", predicate.NotEqual, "banned"),
		).
		Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users WHERE age >= $1 AND name IN ($2, $3) AND status <> $4", native.Query)
	assert.Equal(t, []interface{}{30, "a", "b", "banned"}, native.Args)
}

func TestConfig_InvalidFilterField(t *testing.T) {
	_, err := postgresConfig().
		Table("users").
		Where(predicate.MustNew("age) OR (1", predicate.Equal, 1)).
		Initialize()
	var unsupported *predicate.UnsupportedFilterError
	require.ErrorAs(t, err, &unsupported)
}

func TestConfig_Partitions(t *testing.T) {
	c, err := postgresConfig().
		Table("users").
		Where(predicate.MustNew("age", predicate.GreaterEqual, 30)).
		PartitionColumn("id").
		Partitions(2).
		Bounds(0, 99).
		Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	require.Len(t, native.Statements, 2)
	assert.Equal(t, "SELECT * FROM users WHERE age >= $1 AND id >= $2 AND id <= $3", native.Statements[0].Query)
	assert.Equal(t, []interface{}{30, int64(0), int64(49)}, native.Statements[0].Args)
	assert.Equal(t, []interface{}{30, int64(50), int64(99)}, native.Statements[1].Args)
	assert.Equal(t, partition.NewRange(50, 99), native.Splits()[1].Range)

	// The unpartitioned query is unaffected by the split arguments.
	assert.Equal(t, []interface{}{30}, native.Args)
}

func TestConfig_DefaultBounds(t *testing.T) {
	c, err := postgresConfig().Table("users").PartitionColumn("id").Partitions(2).Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	require.Len(t, native.Splits(), 2)
	assert.Equal(t, int64(0), native.Splits()[0].Range.Lower)
	assert.Equal(t, int64(2147483647), native.Splits()[1].Range.Upper)
}

func TestConfig_EmptySplits(t *testing.T) {
	c, err := postgresConfig().Table("users").PartitionColumn("id").Partitions(3).Bounds(1, 2).Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	require.Len(t, native.Statements, 3)
	assert.NotEmpty(t, native.Statements[1].Query)
	assert.True(t, native.Statements[2].Split.Empty())
	assert.Empty(t, native.Statements[2].Query)
}

func TestConfig_ExplicitQuery(t *testing.T) {
	c, err := postgresConfig().Table("t").Query("SELECT a, b FROM t JOIN u USING (id);").Initialize()
	require.NoError(t, err)
	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a, b FROM t JOIN u USING (id)", native.Query)

	c, err = postgresConfig().
		Table("t").
		Query("SELECT a, b FROM t JOIN u USING (id)").
		Where(predicate.MustNew("a", predicate.Equal, 5)).
		Initialize()
	require.NoError(t, err)
	native, err = c.Native()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT a, b FROM t JOIN u USING (id)) AS connplan_src WHERE a = $1", native.Query)
}

func TestConfig_MySQL(t *testing.T) {
	c, err := sql.New(connector.Read, connector.CellsShape()).
		Host("db.local").
		Port(3306).
		DriverClass("com.mysql.jdbc.Driver").
		Database("shop").
		Username("root").
		Table("users").
		Where(predicate.MustNew("id", predicate.In, []int{1, 2, 3})).
		Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "mysql", native.DriverName)
	assert.Equal(t, "SELECT * FROM users WHERE id IN (?, ?, ?)", native.Query)
	assert.Equal(t, []interface{}{1, 2, 3}, native.Args)
}

func TestConfig_Write(t *testing.T) {
	c, err := sql.New(connector.Write, connector.RecordShape("Order")).
		Host("db.local").
		Port(5432).
		DriverClass("postgres").
		Database("shop").
		Username("root").
		Table("orders").
		Select("id", "total").
		Initialize()
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO orders (id, total) VALUES ($1, $2)", native.Query)
	assert.Equal(t, connector.RecordShape("Order"), c.EntityShape())
	assert.Len(t, native.Splits(), 1)
}

func TestConfig_InitializeFrom(t *testing.T) {
	c, err := sql.New(connector.Read, connector.CellsShape()).InitializeFrom(map[string]interface{}{
		"host":            "db.local",
		"port":            5432,
		"user":            "root",
		"password":        "toor",
		"database":        "shop",
		"table":           "orders",
		"driverClass":     "org.postgresql.Driver",
		"partitionColumn": "id",
		"numPartitions":   "2",
		"upperBound":      9,
		"inputColumns":    "id, total",
		"queryFilter": []interface{}{
			map[string]interface{}{"field": "total", "operator": "gt", "value": 100},
		},
		"application_name": "connplan",
	})
	require.NoError(t, err)
	assert.Equal(t, connector.Initialized, c.State())

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, "host=db.local port=5432 user=root password=toor dbname=shop application_name=connplan sslmode=disable", native.DSN)
	assert.Equal(t, "SELECT id, total FROM orders WHERE total > $1", native.Query)
	require.Len(t, native.Statements, 2)
	assert.Equal(t, []interface{}{100, int64(5), int64(9)}, native.Statements[1].Args)
}

func TestConfig_InitializeFromTypeError(t *testing.T) {
	_, err := sql.New(connector.Read, connector.CellsShape()).InitializeFrom(map[string]interface{}{
		"host":  "db.local",
		"table": []interface{}{"a"},
	})
	requireConfigurationError(t, err, "table")
}

func TestConfig_InitializeFromRetry(t *testing.T) {
	bag := map[string]interface{}{
		"host":        "db.local",
		"port":        5432,
		"user":        "root",
		"database":    "shop",
		"table":       []interface{}{"orders"},
		"driverClass": "org.postgresql.Driver",
		"queryFilter": []interface{}{
			map[string]interface{}{"field": "total", "operator": "gt", "value": 100},
		},
	}
	c := sql.New(connector.Read, connector.CellsShape())
	_, err := c.InitializeFrom(bag)
	requireConfigurationError(t, err, "table")
	assert.Empty(t, c.Common().Hosts)
	assert.Empty(t, c.Common().Predicates)

	bag["table"] = "orders"
	_, err = c.InitializeFrom(bag)
	require.NoError(t, err)

	native, err := c.Native()
	require.NoError(t, err)
	assert.Equal(t, []string{"db.local"}, c.Common().Hosts)
	assert.Equal(t, "SELECT * FROM orders WHERE total > $1", native.Query)
	assert.Equal(t, []interface{}{100}, native.Args)
}

func TestDialectName(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{identity: "org.postgresql.Driver", want: "postgresql"},
		{identity: "com.mysql.jdbc.Driver", want: "mysql"},
		{identity: "com.mysql.cj.jdbc.Driver", want: "mysql"},
		{identity: "org.mariadb.jdbc.Driver", want: "mariadb"},
		{identity: " Postgres ", want: "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			assert.Equal(t, tt.want, sql.DialectName(tt.identity))
			_, err := sql.GetTemplate(tt.identity)
			assert.NoError(t, err)
		})
	}
}

func TestDialects(t *testing.T) {
	assert.Equal(t, []string{"mariadb", "mysql", "pgx", "postgres", "postgresql", "sqlite"}, sql.Dialects())

	_, err := sql.GetTemplate("org.hsqldb.jdbcDriver")
	assert.ErrorContains(t, err, "available: mariadb, mysql, pgx, postgres, postgresql, sqlite")
}
