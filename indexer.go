package indexer

import (
	"context"
	"sync/atomic"

	"github.com/go-errors/errors"
	"github.com/xompass/mongo-index-creator/clients"
	"github.com/xompass/mongo-index-creator/database"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 10

// DefaultClientDatabaseKey is the client database the client schema applies to when none is configured
const DefaultClientDatabaseKey = "default"

type Options struct {
	Schemas SchemaSource
	// Clients may be nil when only core databases are managed
	Clients     ClientDirectory
	Connections ConnectionResolver
	// CoreDatabases maps each database key of the core schema to its connection
	CoreDatabases     map[string]database.Config
	ClientDatabaseKey string
	// Concurrency bounds the number of targets reconciled at the same time
	Concurrency int
	Logger      *zap.Logger
	// Sink receives the run summary. Defaults to the logger.
	Sink ReportSink
}

// Indexer reconciles the declared indexes of the core and client databases
type Indexer struct {
	schemas     SchemaSource
	clients     ClientDirectory
	enumerator  *Enumerator
	reconciler  *Reconciler
	concurrency int
	logger      *zap.Logger
	sink        ReportSink
}

func New(opts Options) (*Indexer, error) {
	if opts.Schemas == nil {
		return nil, errors.New("a schema source is required")
	}

	if opts.Connections == nil {
		return nil, errors.New("a connection resolver is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	clientDatabaseKey := opts.ClientDatabaseKey
	if clientDatabaseKey == "" {
		clientDatabaseKey = DefaultClientDatabaseKey
	}

	sink := opts.Sink
	if sink == nil {
		sink = LoggerSink(logger)
	}

	return &Indexer{
		schemas: opts.Schemas,
		clients: opts.Clients,
		enumerator: &Enumerator{
			CoreDatabases:     opts.CoreDatabases,
			ClientDatabaseKey: clientDatabaseKey,
			Connections:       opts.Connections,
			Logger:            logger,
		},
		reconciler:  NewReconciler(logger),
		concurrency: concurrency,
		logger:      logger,
		sink:        sink,
	}, nil
}

// Run reconciles the core databases and every client, or only the given clients.
// Only configuration errors are returned, always before any index is touched.
// Collection failures are part of the returned report.
func (i *Indexer) Run(ctx context.Context, clientCodes ...string) (*Report, error) {
	report := NewReport()
	log := i.logger.With(zap.String("runId", report.RunID))

	declared, err := i.loadSchemas(clientCodes, log)
	if err != nil {
		return nil, err
	}

	var clientList []clients.Client
	if declared.Client != nil {
		clientList, err = i.getClients(ctx, clientCodes, log)
		if err != nil {
			return nil, err
		}
		if len(clientList) == 0 {
			declared.Client = nil
		}
	}

	targets, err := i.enumerator.Enumerate(declared, clientList)
	if err != nil {
		return nil, err
	}

	log.Info("Reconciling indexes...", zap.Int("targets", len(targets)), zap.Int("clients", len(clientList)))

	failed := i.reconcileAll(ctx, targets, report, log)

	log.Info("Indexes reconciled", zap.Int("targets", len(targets)), zap.Int("failed", failed))
	i.sink.Publish(report.Export())

	return report, nil
}

func (i *Indexer) loadSchemas(clientCodes []string, log *zap.Logger) (Schemas, error) {
	var core any
	if len(clientCodes) == 0 {
		raw, err := i.schemas.Core()
		if err != nil {
			return Schemas{}, newIndexerError(INVALID_SCHEMAS, err, "Unable to read core schemas")
		}
		if raw == nil {
			log.Warn("Operation skipped: No core indexes to create found.")
		}
		core = raw
	}

	client, err := i.schemas.Client()
	if err != nil {
		return Schemas{}, newIndexerError(INVALID_SCHEMAS, err, "Unable to read client schemas")
	}
	if client == nil {
		log.Warn("Operation skipped: No client indexes to create found.")
	}

	return DecodeSchemas(core, client)
}

func (i *Indexer) getClients(ctx context.Context, clientCodes []string, log *zap.Logger) ([]clients.Client, error) {
	if i.clients == nil {
		log.Warn("Operation skipped: No client directory configured.")
		return nil, nil
	}

	clientList, err := i.clients.Get(ctx, clientCodes...)
	if err != nil {
		return nil, newIndexerError(CLIENT_DIRECTORY_ERROR, err, "Unable to get the clients list")
	}

	if len(clientList) == 0 {
		if len(clientCodes) > 0 {
			log.Warn("Operation skipped: No clients found.", zap.Strings("clientCodes", clientCodes))
		} else {
			log.Warn("Operation skipped: No clients found.")
		}
	}

	return clientList, nil
}

// reconcileAll reconciles every target concurrently and returns how many had a failure.
// Targets own disjoint state, the report is the only shared value.
func (i *Indexer) reconcileAll(ctx context.Context, targets []Target, report *Report, log *zap.Logger) int {
	var group errgroup.Group
	group.SetLimit(i.concurrency)

	var failed atomic.Int32
	for _, target := range targets {
		group.Go(func() error {
			outcome := i.reconciler.Reconcile(ctx, target)
			if outcome.Failed() {
				failed.Add(1)
				log.Warn("Collection not fully reconciled", zap.Stringer("target", target.ID), zap.Strings("errors", outcome.Errors))
			}
			report.Merge(outcome)
			return nil
		})
	}

	_ = group.Wait()
	return int(failed.Load())
}
