package elasticsearch

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/valyala/fastjson"

	"github.com/cube2222/connplan/config"
	"github.com/cube2222/connplan/connector"
)

const defaultPort = 9200

var writeOperations = []string{"index", "create", "update", "upsert"}

// Config is the search index connector configuration.
type Config struct {
	*connector.Base[*Config, *Native]

	index          string
	typ            string
	search         string
	query          string
	writeOperation string
}

func New(mode connector.Mode, shape connector.EntityShape) *Config {
	c := &Config{
		writeOperation: "index",
	}
	c.Base = connector.NewBase[*Config, *Native](c, connector.Elasticsearch, mode, shape, c.validate, c.build)
	return c
}

func (c *Config) Index(index string) *Config {
	return c.Mutate("index", func() {
		c.index = index
	})
}

// Type sets the mapping type, documents of all types are read by default.
func (c *Config) Type(typ string) *Config {
	return c.Mutate("type", func() {
		c.typ = typ
	})
}

// Search sets a free text search. Without it all documents match.
func (c *Config) Search(text string) *Config {
	return c.Mutate("search", func() {
		c.search = text
	})
}

// Query sets the base query as json, either a query clause or a request body with a query field.
func (c *Config) Query(json string) *Config {
	return c.Mutate("query", func() {
		c.query = json
	})
}

func (c *Config) WriteOperation(operation string) *Config {
	return c.Mutate("writeOperation", func() {
		c.writeOperation = operation
	})
}

var bagKeys = []string{"index", "type", "database", "query", "writeOperation"}

// InitializeFrom loads the configuration from a generic key/value bag and initializes it.
// The database key takes an index/type resource. A query starting with { is json, free text otherwise.
// A bag that fails to load leaves the configuration unchanged.
func (c *Config) InitializeFrom(bag map[string]interface{}) (*Config, error) {
	if err := c.Load(bag, c.decode, bagKeys...); err != nil {
		return c, err
	}
	return c.Initialize()
}

func (c *Config) decode(bag map[string]interface{}) (func(), error) {
	var apply []func()

	if config.Has(bag, "database") {
		resource, err := config.GetString(bag, "database")
		if err != nil {
			return nil, bagError("database", err)
		}
		index, typ, _ := strings.Cut(resource, "/")
		apply = append(apply, func() {
			c.index = index
			c.typ = typ
		})
	}
	if config.Has(bag, "index") {
		index, err := config.GetString(bag, "index")
		if err != nil {
			return nil, bagError("index", err)
		}
		apply = append(apply, func() { c.index = index })
	}
	if config.Has(bag, "type") {
		typ, err := config.GetString(bag, "type")
		if err != nil {
			return nil, bagError("type", err)
		}
		apply = append(apply, func() { c.typ = typ })
	}
	if config.Has(bag, "query") {
		query, err := config.GetString(bag, "query")
		if err != nil {
			return nil, bagError("query", err)
		}
		if strings.HasPrefix(strings.TrimSpace(query), "{") {
			apply = append(apply, func() {
				c.query = query
				c.search = ""
			})
		} else {
			apply = append(apply, func() {
				c.search = query
				c.query = ""
			})
		}
	}
	if config.Has(bag, "writeOperation") {
		operation, err := config.GetString(bag, "writeOperation")
		if err != nil {
			return nil, bagError("writeOperation", err)
		}
		apply = append(apply, func() { c.writeOperation = operation })
	}

	return func() {
		for _, f := range apply {
			f()
		}
	}, nil
}

func bagError(field string, err error) error {
	return errors.Wrap(connector.NewConfigurationError(connector.Elasticsearch, field, "%s", err), "couldn't load configuration")
}

func (c *Config) validate(common connector.Common) error {
	if c.index == "" {
		return connector.NewConfigurationError(connector.Elasticsearch, "index", "must be specified")
	}
	if strings.ContainsAny(c.index, "/, ") {
		return connector.NewConfigurationError(connector.Elasticsearch, "index", "%q is not a valid index name", c.index)
	}
	if strings.ContainsAny(c.typ, "/, ") {
		return connector.NewConfigurationError(connector.Elasticsearch, "type", "%q is not a valid type name", c.typ)
	}
	if c.search != "" && c.query != "" {
		return connector.NewConfigurationError(connector.Elasticsearch, "query", "can't be combined with a free text search")
	}
	if c.query != "" {
		v, err := fastjson.Parse(c.query)
		if err != nil {
			return connector.NewConfigurationError(connector.Elasticsearch, "query", "invalid json: %s", err)
		}
		if v.Type() != fastjson.TypeObject {
			return connector.NewConfigurationError(connector.Elasticsearch, "query", "must be a json object")
		}
	}
	if common.Partitions > 1 || common.BoundsSet {
		return connector.NewConfigurationError(connector.Elasticsearch, "numPartitions", "search index scans can't be range partitioned")
	}

	if c.Mode() == connector.Write {
		if c.search != "" || c.query != "" {
			return connector.NewConfigurationError(connector.Elasticsearch, "query", "write configurations can't have a query")
		}
		if !lo.Contains(writeOperations, c.writeOperation) {
			return connector.NewConfigurationError(connector.Elasticsearch, "writeOperation", "must be one of %s, got %q", strings.Join(writeOperations, ", "), c.writeOperation)
		}
	}
	return nil
}

func (c *Config) resource() string {
	if c.typ == "" {
		return c.index
	}
	return c.index + "/" + c.typ
}

func (c *Config) build(common connector.Common) (*Native, error) {
	port := common.Port
	if port == 0 {
		port = defaultPort
	}

	addresses := make([]string, len(common.Hosts))
	for i, host := range common.Hosts {
		if strings.Contains(host, "://") {
			addresses[i] = host
			continue
		}
		addresses[i] = fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port)))
	}

	native := &Native{
		Client: elasticsearch.Config{
			Addresses: addresses,
			Username:  common.Username,
			Password:  common.Password,
		},
		Resource: c.resource(),
		Settings: map[string]string{
			"es.resource":                 c.resource(),
			"es.nodes":                    strings.Join(common.Hosts, ","),
			"es.port":                     strconv.Itoa(port),
			"es.field.read.empty.as.null": "false",
			"es.input.json":               "yes",
			"index.mapper.dynamic":        "true",
		},
		splits: []connector.Split{{Index: 0}},
	}
	if common.Username != "" {
		native.Settings["es.net.http.auth.user"] = common.Username
		native.Settings["es.net.http.auth.pass"] = common.Password
	}
	if len(common.Projection) > 0 {
		native.Settings["es.read.field.include"] = strings.Join(common.Projection, ",")
	}

	if c.Mode() == connector.Write {
		native.Settings["es.write.operation"] = c.writeOperation
	} else {
		query, err := Translate(BaseQuery{Search: c.search, JSON: c.query}, common.Predicates)
		if err != nil {
			return nil, errors.Wrap(err, "couldn't translate filters")
		}
		native.Query = query
		native.Settings["es.query"] = query
	}

	for k, v := range common.Options {
		native.Settings[k] = v
	}
	return native, nil
}
