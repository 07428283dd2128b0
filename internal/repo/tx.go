package repo

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxRunner runs a function atomically when the deployment supports it. The
// send path uses it to make the registry upsert and the log append a single
// transaction, so a summary can never reference a message that is not
// durable.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type mongoTxRunner struct {
	client *mongo.Client
	logger *zap.Logger

	// standalone deployments reject transactions; after the first such
	// failure every call goes straight to the sequential path
	noTxSupport atomic.Bool
}

func NewTxRunner(client *mongo.Client, logger *zap.Logger) TxRunner {
	return &mongoTxRunner{
		client: client,
		logger: logger,
	}
}

func (t *mongoTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.noTxSupport.Load() {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		t.logger.Warn("session unavailable, running writes sequentially", zap.Error(err))
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && isTxUnsupported(err) {
		t.noTxSupport.Store(true)
		t.logger.Warn("transactions unsupported by deployment, falling back to sequential writes",
			zap.Error(err))
		return fn(ctx)
	}
	return err
}

func isTxUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}
