package database

import (
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// Config locates a MongoDB database. Two configs pointing to the same URI and database
// address the same physical store.
type Config struct {
	URI      string `mapstructure:"uri" json:"uri" bson:"uri"`
	Database string `mapstructure:"database" json:"database" bson:"database"`
}

// IsZero reports whether the config has no URI
func (c Config) IsZero() bool {
	return c.URI == ""
}

// Equal reports whether both configs resolve to the same database
func (c Config) Equal(other Config) bool {
	return c.URI == other.URI && c.DatabaseName() == other.DatabaseName()
}

// DatabaseName returns the configured database, falling back to the one in the URI path.
func (c Config) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}

	conn, err := connstring.Parse(c.URI)
	if err != nil {
		return ""
	}

	return conn.Database
}

func (c Config) cacheKey() string {
	return c.URI + "|" + c.DatabaseName()
}
