package mainboilerplate

import (
	"go.cinedex.dev/core/index"
)

// ElasticConfig configures the Elasticsearch client.
type ElasticConfig struct {
	Address  []string `long:"address" env:"ADDRESS" env-delim:"," default:"http://localhost:9200" description:"Elasticsearch node address. Repeat for multiple nodes"`
	Recreate bool     `long:"recreate" env:"RECREATE" description:"Delete and re-create indices having a schema at startup"`
}

// MustClient builds an Elasticsearch index client.
func (c *ElasticConfig) MustClient() *index.Elastic {
	var client, err = index.NewElastic(c.Address...)
	Must(err, "failed to build Elasticsearch client", "addr", c.Address)
	return client
}
