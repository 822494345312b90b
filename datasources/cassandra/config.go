package cassandra

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/connector"
)

const (
	defaultPageSize    = 5000
	defaultConsistency = "LOCAL_ONE"
)

// Config is the wide-column connector configuration.
type Config struct {
	*connector.Base[*Config, *Native]

	keyspace       string
	table          string
	partitionKey   []string
	pageSize       int
	consistency    string
	allowFiltering bool
}

func New(mode connector.Mode, shape connector.EntityShape) *Config {
	c := &Config{
		pageSize:       defaultPageSize,
		consistency:    defaultConsistency,
		allowFiltering: true,
	}
	c.Base = connector.NewBase[*Config, *Native](c, connector.Cassandra, mode, shape, c.validate, c.build)
	// The whole Murmur3 token ring.
	c.SetDefaultBounds(math.MinInt64, math.MaxInt64)
	return c
}

func (c *Config) Keyspace(keyspace string) *Config {
	return c.Mutate("keyspace", func() {
		c.keyspace = keyspace
	})
}

func (c *Config) Table(table string) *Config {
	return c.Mutate("table", func() {
		c.table = table
	})
}

// PartitionKey sets the partition key columns, used to restrict each partition to its token range.
func (c *Config) PartitionKey(columns ...string) *Config {
	return c.Mutate("partitionKey", func() {
		c.partitionKey = append(c.partitionKey, columns...)
	})
}

func (c *Config) PageSize(pageSize int) *Config {
	return c.Mutate("pageSize", func() {
		c.pageSize = pageSize
	})
}

func (c *Config) Consistency(consistency string) *Config {
	return c.Mutate("consistency", func() {
		c.consistency = consistency
	})
}

// AllowFiltering controls whether filtered queries get ALLOW FILTERING appended.
func (c *Config) AllowFiltering(allow bool) *Config {
	return c.Mutate("allowFiltering", func() {
		c.allowFiltering = allow
	})
}

// ReaderImplementation names the reader the engine has to instantiate for this configuration.
func (c *Config) ReaderImplementation() connector.ReaderKind {
	if c.EntityShape().Kind == connector.Record {
		return EntityReader
	}
	return CellsReader
}

var bagKeys = []string{"keyspace", "database", "table", "partitionKey", "pageSize", "consistency", "allowFiltering"}

// InitializeFrom loads the configuration from a generic key/value bag and initializes it.
// A bag that fails to load leaves the configuration unchanged.
func (c *Config) InitializeFrom(bag map[string]interface{}) (*Config, error) {
	if err := c.Load(bag, c.decode, bagKeys...); err != nil {
		return c, err
	}
	return c.Initialize()
}

func (c *Config) decode(bag map[string]interface{}) (func(), error) {
	var apply []func()

	for _, key := range []string{"database", "keyspace"} {
		if config.Has(bag, key) {
			keyspace, err := config.GetString(bag, key)
			if err != nil {
				return nil, bagError(key, err)
			}
			apply = append(apply, func() { c.keyspace = keyspace })
		}
	}
	if config.Has(bag, "table") {
		table, err := config.GetString(bag, "table")
		if err != nil {
			return nil, bagError("table", err)
		}
		apply = append(apply, func() { c.table = table })
	}
	if config.Has(bag, "partitionKey") {
		columns, err := config.GetStringList(bag, "partitionKey")
		if err != nil {
			return nil, bagError("partitionKey", err)
		}
		apply = append(apply, func() { c.partitionKey = columns })
	}
	if config.Has(bag, "pageSize") {
		pageSize, err := config.GetInt(bag, "pageSize")
		if err != nil {
			return nil, bagError("pageSize", err)
		}
		apply = append(apply, func() { c.pageSize = pageSize })
	}
	if config.Has(bag, "consistency") {
		consistency, err := config.GetString(bag, "consistency")
		if err != nil {
			return nil, bagError("consistency", err)
		}
		apply = append(apply, func() { c.consistency = consistency })
	}
	if config.Has(bag, "allowFiltering") {
		allow, err := config.GetBool(bag, "allowFiltering")
		if err != nil {
			return nil, bagError("allowFiltering", err)
		}
		apply = append(apply, func() { c.allowFiltering = allow })
	}

	return func() {
		for _, f := range apply {
			f()
		}
	}, nil
}

func bagError(field string, err error) error {
	return errors.Wrap(connector.NewConfigurationError(connector.Cassandra, field, "%s", err), "couldn't load configuration")
}

func (c *Config) bounded(common connector.Common) bool {
	return common.Partitions > 1 || common.BoundsSet
}

func (c *Config) validate(common connector.Common) error {
	if common.Port <= 0 {
		return connector.NewConfigurationError(connector.Cassandra, "port", "must be specified")
	}
	if c.keyspace == "" {
		return connector.NewConfigurationError(connector.Cassandra, "keyspace", "must be specified")
	}
	if !validIdentifier(c.keyspace) {
		return connector.NewConfigurationError(connector.Cassandra, "keyspace", "%q is not a plain keyspace name", c.keyspace)
	}
	if c.table == "" {
		return connector.NewConfigurationError(connector.Cassandra, "table", "must be specified")
	}
	if !validIdentifier(c.table) {
		return connector.NewConfigurationError(connector.Cassandra, "table", "%q is not a plain table name", c.table)
	}
	for _, column := range common.Projection {
		if !validIdentifier(column) {
			return connector.NewConfigurationError(connector.Cassandra, "inputColumns", "%q is not a plain column name", column)
		}
	}
	for _, column := range c.partitionKey {
		if !validIdentifier(column) {
			return connector.NewConfigurationError(connector.Cassandra, "partitionKey", "%q is not a plain column name", column)
		}
	}
	if c.pageSize < 0 {
		return connector.NewConfigurationError(connector.Cassandra, "pageSize", "can't be negative, got %d", c.pageSize)
	}
	if _, err := gocql.ParseConsistencyWrapper(c.consistency); err != nil {
		return connector.NewConfigurationError(connector.Cassandra, "consistency", "%s", err)
	}
	if c.Mode() == connector.Write && len(common.Projection) == 0 {
		return connector.NewConfigurationError(connector.Cassandra, "inputColumns", "write configurations must list the written columns")
	}
	return applyOptions(gocql.NewCluster(), common.Options)
}

// applyOptions overrides driver settings with the matching options.
// Other options aren't interpreted, they're only carried in the native configuration.
func applyOptions(cluster *gocql.ClusterConfig, options map[string]string) error {
	for _, key := range slices.Sorted(maps.Keys(options)) {
		value := options[key]
		var err error
		switch key {
		case "consistency":
			cluster.Consistency, err = gocql.ParseConsistencyWrapper(value)
		case "pageSize":
			cluster.PageSize, err = nonNegative(value)
		case "timeout":
			cluster.Timeout, err = time.ParseDuration(value)
		case "connectTimeout":
			cluster.ConnectTimeout, err = time.ParseDuration(value)
		case "numConns":
			cluster.NumConns, err = nonNegative(value)
		case "protoVersion":
			cluster.ProtoVersion, err = nonNegative(value)
		}
		if err != nil {
			return connector.NewConfigurationError(connector.Cassandra, key, "%s", err)
		}
	}
	return nil
}

func nonNegative(value string) (int, error) {
	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if out < 0 {
		return 0, errors.Errorf("can't be negative, got %d", out)
	}
	return out, nil
}

func (c *Config) build(common connector.Common) (*Native, error) {
	consistency, err := gocql.ParseConsistencyWrapper(c.consistency)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(common.Hosts...)
	cluster.Port = common.Port
	cluster.Keyspace = c.keyspace
	cluster.Consistency = consistency
	cluster.PageSize = c.pageSize
	if common.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: common.Username,
			Password: common.Password,
		}
	}
	if err := applyOptions(cluster, common.Options); err != nil {
		return nil, err
	}

	native := &Native{
		Cluster:     cluster,
		Hosts:       common.Hosts,
		Port:        common.Port,
		Keyspace:    c.keyspace,
		Table:       c.table,
		Consistency: cluster.Consistency.String(),
		PageSize:    cluster.PageSize,
		Options:     common.Options,
		ReaderKind:  c.ReaderImplementation(),
	}
	table := fmt.Sprintf("%s.%s", c.keyspace, c.table)

	if c.Mode() == connector.Write {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(common.Projection)), ", ")
		native.Query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(common.Projection, ", "), placeholders)
		native.splits = []connector.Split{{Index: 0}}
		native.Statements = []Statement{{Split: native.splits[0], Query: native.Query}}
		return native, nil
	}

	clauses, err := Translate(common.Predicates)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't translate filters")
	}
	where, args := Where(clauses)

	columns := "*"
	if len(common.Projection) > 0 {
		columns = strings.Join(common.Projection, ", ")
	}
	base := fmt.Sprintf("SELECT %s FROM %s", columns, table)

	splits, err := connector.PlanSplits(common, c.bounded(common))
	if err != nil {
		return nil, err
	}

	native.Clauses = clauses
	native.Query = c.statement(base, where, len(clauses) > 0)
	native.Args = args
	native.splits = splits
	native.Statements = make([]Statement, len(splits))
	for i, split := range splits {
		switch {
		case split.Empty():
			native.Statements[i] = Statement{Split: split}
		case split.Bounded && len(c.partitionKey) > 0:
			restriction := tokenClause(c.partitionKey)
			if where != "" {
				restriction = where + " AND " + restriction
			}
			splitArgs := append(append(make([]interface{}, 0, len(args)+2), args...), split.Range.Lower, split.Range.Upper)
			native.Statements[i] = Statement{
				Split: split,
				Query: c.statement(base, restriction, len(clauses) > 0),
				Args:  splitArgs,
			}
		default:
			native.Statements[i] = Statement{Split: split, Query: native.Query, Args: args}
		}
	}
	return native, nil
}

func (c *Config) statement(base, where string, filtered bool) string {
	out := base
	if where != "" {
		out += " WHERE " + where
	}
	if filtered && c.allowFiltering {
		out += " ALLOW FILTERING"
	}
	return out
}
