package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

// TxRunner provides the transactional boundary for one application's
// load-mutate-save cycle. The SQL implementation wraps a database
// transaction; the in-memory one serializes writers per application with
// sharded mutexes.
type TxRunner interface {
	RunInTx(ctx context.Context, applicationID id.ApplicationID, fn func(ctx context.Context) error) error
}

const numTxShards = 64

const defaultTxTimeout = 5 * time.Second

// ShardedTxRunner distributes per-application locks across shards so
// unrelated applications never contend.
type ShardedTxRunner struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTxRunner() *ShardedTxRunner {
	return &ShardedTxRunner{timeout: defaultTxTimeout}
}

func (t *ShardedTxRunner) RunInTx(ctx context.Context, applicationID id.ApplicationID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := t.selectShard(applicationID)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func (t *ShardedTxRunner) selectShard(applicationID id.ApplicationID) uint32 {
	h := fnv.New32a()
	h.Write([]byte(applicationID.String()))
	return h.Sum32() % numTxShards
}
