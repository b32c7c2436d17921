package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xompass/mongo-index-creator/clients"
	"github.com/xompass/mongo-index-creator/database"
	"github.com/xompass/mongo-index-creator/logger"
)

// Config holds all configuration for the application.
type Config struct {
	// Schemas locates the declared index schemas
	Schemas SchemasConfig `mapstructure:"schemas"`
	// Databases maps the core database keys to their connection.
	// Only settable from the config file, or MONGO_URI / MONGO_DATABASE for the core key.
	Databases map[string]database.Config `mapstructure:"databases"`
	// Clients locates the client directory
	Clients ClientsConfig `mapstructure:"clients"`
	// Indexer tunes the reconciliation
	Indexer IndexerConfig `mapstructure:"indexer"`
	// Log holds configuration for the logger
	Log logger.Config `mapstructure:"log"`
	// Lock prevents overlapping runs
	Lock LockConfig `mapstructure:"lock"`
	// Server holds configuration for the HTTP trigger
	Server ServerConfig `mapstructure:"server"`
}

type SchemasConfig struct {
	Path string `mapstructure:"path" default:"schemas/mongo"`
}

type ClientsConfig struct {
	// DatabaseKey is the core database holding the clients collection
	DatabaseKey     string `mapstructure:"database_key" default:"core"`
	Collection      string `mapstructure:"collection" default:"clients"`
	IdentifierField string `mapstructure:"identifier_field" default:"code"`
	DatabasesField  string `mapstructure:"databases_field" default:"databases"`
	// ClientDatabaseKey is the client database receiving the client schema
	ClientDatabaseKey string `mapstructure:"client_database_key" default:"default"`
	// Static replaces the clients collection with a fixed list, only settable from the config file
	Static []clients.Client `mapstructure:"static"`
}

type IndexerConfig struct {
	Concurrency int `mapstructure:"concurrency" default:"10"`
}

type LockConfig struct {
	Enabled  bool          `mapstructure:"enabled" default:"false"`
	Addr     string        `mapstructure:"addr" default:"localhost:6379"`
	Password string        `mapstructure:"password" default:""`
	DB       int           `mapstructure:"db" default:"1"`
	Key      string        `mapstructure:"key" default:"mongo-index-creator:lock"`
	TTL      time.Duration `mapstructure:"ttl" default:"10m"`
}

type ServerConfig struct {
	Port uint16 `mapstructure:"port" default:"8080"`
}

// ClientsDatabase returns the connection of the database holding the clients collection
func (c *Config) ClientsDatabase() (database.Config, bool) {
	cfg, ok := c.Databases[c.Clients.DatabaseKey]
	return cfg, ok && !cfg.IsZero()
}

// LoadConfig loads configuration from an optional file, the .env file of path and
// environment variables. Without file, indexer.{yaml,yml,json} in path is used if present.
func LoadConfig(path string, file string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. LOG_LEVEL -> log.level)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("databases.core.uri", "MONGO_URI")
	_ = v.BindEnv("databases.core.database", "MONGO_DATABASE")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Errorf("failed to read config file %s: %v", file, err)
		}
	} else {
		v.SetConfigName("indexer")
		v.AddConfigPath(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Errorf("failed to read config: %v", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags. Map fields have no defaults.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		switch field.Type.Kind() {
		case reflect.Struct:
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		case reflect.Map, reflect.Slice:
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
