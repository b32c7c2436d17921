package main

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/redis/go-redis/v9"
	indexer "github.com/xompass/mongo-index-creator"
	"github.com/xompass/mongo-index-creator/clients"
	"github.com/xompass/mongo-index-creator/config"
	"github.com/xompass/mongo-index-creator/database"
	"github.com/xompass/mongo-index-creator/lock"
	"github.com/xompass/mongo-index-creator/logger"
	"github.com/xompass/mongo-index-creator/schemas"
	"go.uber.org/zap"
)

// application wires the indexer and its collaborators from the configuration
type application struct {
	config     *config.Config
	logger     *zap.Logger
	datasource *database.Datasource
	indexer    *indexer.Indexer
	locker     lock.Locker
	redis      *redis.Client

	// ping checks the clients database, nil without one
	ping func(ctx context.Context) error
}

func newApplication() (*application, error) {
	cfg, err := config.LoadConfig(configDir, configFile)
	if err != nil {
		return nil, errors.Errorf("failed to load config: %v", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, errors.Errorf("failed to initialize logger: %v", err)
	}

	app := &application{
		config:     cfg,
		logger:     l,
		datasource: database.NewDatasource(),
		locker:     lock.NopLocker{},
	}

	directory, err := app.clientDirectory()
	if err != nil {
		return nil, err
	}

	app.indexer, err = indexer.New(indexer.Options{
		Schemas:           schemas.NewFileSource(cfg.Schemas.Path),
		Clients:           directory,
		Connections:       indexer.NewDatasourceResolver(app.datasource),
		CoreDatabases:     cfg.Databases,
		ClientDatabaseKey: cfg.Clients.ClientDatabaseKey,
		Concurrency:       cfg.Indexer.Concurrency,
		Logger:            l,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Lock.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Lock.Addr,
			Password: cfg.Lock.Password,
			DB:       cfg.Lock.DB,
		})
		app.locker = lock.NewRedisLocker(app.redis, cfg.Lock.Key, cfg.Lock.TTL)
	}

	return app, nil
}

// clientDirectory prefers the static client list, then the clients collection of the core database
func (a *application) clientDirectory() (indexer.ClientDirectory, error) {
	if len(a.config.Clients.Static) > 0 {
		return clients.StaticDirectory(a.config.Clients.Static), nil
	}

	dbConfig, ok := a.config.ClientsDatabase()
	if !ok {
		a.logger.Warn("No database configured for the clients collection", zap.String("databaseKey", a.config.Clients.DatabaseKey))
		return nil, nil
	}

	connector, err := a.datasource.GetConnector(a.config.Clients.DatabaseKey, dbConfig)
	if err != nil {
		return nil, err
	}
	a.ping = connector.Ping

	return clients.NewMongoDirectory(
		connector.Collection(a.config.Clients.Collection),
		a.config.Clients.IdentifierField,
		a.config.Clients.DatabasesField,
	), nil
}

func (a *application) close(ctx context.Context) {
	a.datasource.Destroy(ctx)

	if a.redis != nil {
		_ = a.redis.Close()
	}

	_ = a.logger.Sync()
}
