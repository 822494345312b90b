package cmd

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/connector"
	"github.com/cube2222/connplan/datasources/cassandra"
	"github.com/cube2222/connplan/datasources/elasticsearch"
	"github.com/cube2222/connplan/datasources/sql"
	_ "github.com/cube2222/connplan/datasources/sql/mysql"
	_ "github.com/cube2222/connplan/datasources/sql/postgres"
)

type creator func(mode connector.Mode, shape connector.EntityShape, bag map[string]interface{}) (connector.Configuration, error)

var creators = map[string]creator{
	string(connector.Cassandra): func(mode connector.Mode, shape connector.EntityShape, bag map[string]interface{}) (connector.Configuration, error) {
		return cassandra.New(mode, shape).InitializeFrom(bag)
	},
	string(connector.Elasticsearch): func(mode connector.Mode, shape connector.EntityShape, bag map[string]interface{}) (connector.Configuration, error) {
		return elasticsearch.New(mode, shape).InitializeFrom(bag)
	},
	string(connector.SQL): func(mode connector.Mode, shape connector.EntityShape, bag map[string]interface{}) (connector.Configuration, error) {
		return sql.New(mode, shape).InitializeFrom(bag)
	},
}

func createConnector(connectorConfig *config.ConnectorConfig) (connector.Configuration, error) {
	create, ok := creators[connectorConfig.Type]
	if !ok {
		types := make([]string, 0, len(creators))
		for t := range creators {
			types = append(types, t)
		}
		sort.Strings(types)
		return nil, errors.Errorf("unknown connector type %q, expected one of %v", connectorConfig.Type, types)
	}
	mode, err := connector.ParseMode(connectorConfig.Mode)
	if err != nil {
		return nil, err
	}
	shape, err := connector.ParseEntityShape(connectorConfig.Entity)
	if err != nil {
		return nil, err
	}

	cfg, err := create(mode, shape, connectorConfig.Config)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't initialize connector %s", connectorConfig.Name)
	}
	return cfg, nil
}

// selectConnectors returns the named connectors in order, or all of them if no names are given.
func selectConnectors(cfg *config.Config, names []string) ([]*config.ConnectorConfig, error) {
	if len(names) == 0 {
		out := make([]*config.ConnectorConfig, len(cfg.Connectors))
		for i := range cfg.Connectors {
			out[i] = &cfg.Connectors[i]
		}
		return out, nil
	}

	out := make([]*config.ConnectorConfig, len(names))
	for i, name := range names {
		connectorConfig, err := cfg.GetConnectorConfig(name)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't get connector %s", name)
		}
		out[i] = connectorConfig
	}
	return out, nil
}
