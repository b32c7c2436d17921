package indexer

import (
	"context"
	"sync"

	"github.com/xompass/mongo-index-creator/database"
	"go.uber.org/zap"
)

// Reconciler brings the indexes of one target in line with its declared indexes
type Reconciler struct {
	logger *zap.Logger
}

func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile lists, diffs, drops and creates the indexes of a target.
// It never fails: every problem ends up in the returned outcome.
func (r *Reconciler) Reconcile(ctx context.Context, target Target) Outcome {
	log := r.logger.With(zap.String("target", target.ID.String()))

	if target.Err != nil || target.Store == nil {
		return r.unreachable(target, log)
	}

	current := r.currentIndexes(ctx, target, log)
	diff := ComputeDiff(current, target.Indexes)

	outcome := Outcome{Target: target.ID}

	creating := make(map[string]struct{}, len(diff.ToCreate))
	for _, idx := range diff.ToCreate {
		creating[idx.Name] = struct{}{}
	}
	for _, idx := range target.Indexes {
		if _, ok := creating[idx.Name]; !ok {
			outcome.Skipped = append(outcome.Skipped, idx.Name)
		}
	}

	if diff.Empty() {
		log.Debug("indexes up to date", zap.Int("skipped", len(outcome.Skipped)))
		return outcome
	}

	var dropped, created Outcome

	// A modified index is dropped and created under the same name, so the create
	// must wait for the drop. Otherwise both phases run at once.
	if len(diff.Modified()) > 0 {
		dropped = r.drop(ctx, target, diff.ToDrop, log)
		created = r.create(ctx, target, diff.ToCreate, log)
	} else {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			dropped = r.drop(ctx, target, diff.ToDrop, log)
		}()
		go func() {
			defer wg.Done()
			created = r.create(ctx, target, diff.ToCreate, log)
		}()
		wg.Wait()
	}

	outcome.merge(dropped)
	outcome.merge(created)
	return outcome
}

// unreachable reports every declared index of a target without store as failed
func (r *Reconciler) unreachable(target Target, log *zap.Logger) Outcome {
	message := "no connection"
	if target.Err != nil {
		message = target.Err.Error()
	}

	log.Warn("collection skipped", zap.String("reason", message))
	return Outcome{
		Target:           target.ID,
		CollectionFailed: indexNames(target.Indexes),
		Errors:           []string{message},
	}
}

func (r *Reconciler) currentIndexes(ctx context.Context, target Target, log *zap.Logger) []database.IndexDefinition {
	indexes, err := target.Store.ListIndexes(ctx)
	if err != nil {
		// The collection or its database may not exist yet
		log.Debug("cannot list indexes, assuming none", zap.Error(err))
		return []database.IndexDefinition{}
	}

	return withoutIdIndex(indexes)
}

func (r *Reconciler) drop(ctx context.Context, target Target, indexes []database.IndexDefinition, log *zap.Logger) Outcome {
	var outcome Outcome
	if len(indexes) == 0 {
		return outcome
	}

	names := indexNames(indexes)
	ok, err := target.Store.DropIndexes(ctx, names)

	switch {
	case err != nil:
		log.Error("drop indexes failed", zap.Strings("indexes", names), zap.Error(err))
		outcome.CollectionFailed = names
		outcome.Errors = []string{err.Error()}
	case !ok:
		log.Warn("drop indexes refused", zap.Strings("indexes", names))
		outcome.DropFailed = names
	default:
		log.Info("indexes dropped", zap.Strings("indexes", names))
		outcome.Dropped = names
	}

	return outcome
}

func (r *Reconciler) create(ctx context.Context, target Target, indexes []database.IndexDefinition, log *zap.Logger) Outcome {
	var outcome Outcome
	if len(indexes) == 0 {
		return outcome
	}

	names := indexNames(indexes)
	ok, err := target.Store.CreateIndexes(ctx, indexes)

	switch {
	case err != nil:
		log.Error("create indexes failed", zap.Strings("indexes", names), zap.Error(err))
		outcome.CollectionFailed = names
		outcome.Errors = []string{err.Error()}
	case !ok:
		log.Warn("create indexes refused", zap.Strings("indexes", names))
		outcome.CreateFailed = names
	default:
		log.Info("indexes created", zap.Strings("indexes", names))
		outcome.Created = names
	}

	return outcome
}
