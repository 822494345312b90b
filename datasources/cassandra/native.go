package cassandra

import (
	"github.com/gocql/gocql"

	"github.com/cube2222/connplan/connector"
)

const (
	CellsReader  connector.ReaderKind = "cassandra.cells"
	EntityReader connector.ReaderKind = "cassandra.entity"
)

// Native is the wide-column native execution configuration.
// The cluster configuration is built, but never connected.
type Native struct {
	Cluster *gocql.ClusterConfig `yaml:"-"`

	Hosts       []string `yaml:"hosts"`
	Port        int      `yaml:"port"`
	Keyspace    string   `yaml:"keyspace"`
	Table       string   `yaml:"table"`
	Consistency string   `yaml:"consistency"`
	PageSize    int      `yaml:"pageSize"`

	// Options are the pass-through options, the driver settings among them are applied to the cluster.
	Options map[string]string `yaml:"options,omitempty"`

	Clauses []Clause `yaml:"clauses,omitempty"`

	// Query is the unpartitioned statement, an INSERT for write configurations.
	Query      string        `yaml:"query"`
	Args       []interface{} `yaml:"args,omitempty"`
	Statements []Statement   `yaml:"statements"`

	ReaderKind connector.ReaderKind `yaml:"reader"`

	splits []connector.Split
}

// Statement is the query reading a single split. Empty splits have no query.
// Without partition key columns the token range isn't part of the query, the reader applies the split range.
type Statement struct {
	Split connector.Split `yaml:"-"`
	Query string          `yaml:"query"`
	Args  []interface{}   `yaml:"args,omitempty"`
}

func (n *Native) Backend() connector.Backend {
	return connector.Cassandra
}

func (n *Native) Splits() []connector.Split {
	return n.splits
}
