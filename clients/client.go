package clients

import (
	"github.com/xompass/mongo-index-creator/database"
)

// ClientDatabase holds the connections of one client database. Read is optional.
type ClientDatabase struct {
	Write database.Config  `bson:"write" json:"write" mapstructure:"write"`
	Read  *database.Config `bson:"read,omitempty" json:"read,omitempty" mapstructure:"read"`
}

// HasDistinctRead reports whether the read connection points to another store than the write one
func (d ClientDatabase) HasDistinctRead() bool {
	if d.Read == nil || d.Read.IsZero() {
		return false
	}
	return !d.Read.Equal(d.Write)
}

// Client is a tenant with its own databases, keyed by database key
type Client struct {
	Code      string                    `bson:"code" json:"code" mapstructure:"code"`
	Databases map[string]ClientDatabase `bson:"databases" json:"databases" mapstructure:"databases"`
}

// Database returns the client database registered under key
func (c Client) Database(key string) (ClientDatabase, bool) {
	db, ok := c.Databases[key]
	return db, ok
}
