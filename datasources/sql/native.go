package sql

import (
	"github.com/cube2222/connplan/connector"
)

// Native is the relational native execution configuration.
type Native struct {
	Dialect    string   `yaml:"dialect"`
	DriverName string   `yaml:"driverName"`
	DSN        string   `yaml:"dsn"`
	URL        string   `yaml:"url"`
	Table      string   `yaml:"table"`
	Columns    []string `yaml:"columns,omitempty"`

	// Query is the unpartitioned statement, an INSERT for write configurations.
	Query      string        `yaml:"query"`
	Args       []interface{} `yaml:"args,omitempty"`
	Statements []Statement   `yaml:"statements"`

	splits []connector.Split
}

// Statement is the query reading a single split. Empty splits have no query.
type Statement struct {
	Split connector.Split `yaml:"-"`
	Query string          `yaml:"query"`
	Args  []interface{}   `yaml:"args,omitempty"`
}

func (n *Native) Backend() connector.Backend {
	return connector.SQL
}

func (n *Native) Splits() []connector.Split {
	return n.splits
}
