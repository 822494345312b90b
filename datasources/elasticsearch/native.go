package elasticsearch

import (
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/cube2222/connplan/connector"
)

// Native is the search index native execution configuration.
type Native struct {
	// Client is what the reader opens its own client with.
	Client elasticsearch.Config `yaml:"-"`

	Resource string `yaml:"resource"`

	// Query is the search request body, empty for write configurations.
	Query    string            `yaml:"query,omitempty"`
	Settings map[string]string `yaml:"settings"`

	splits []connector.Split
}

func (n *Native) Backend() connector.Backend {
	return connector.Elasticsearch
}

func (n *Native) Splits() []connector.Split {
	return n.splits
}
