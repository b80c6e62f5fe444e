package memory

import (
	"context"
	"sync"

	"catalog/application/ports"
	pkgerrors "catalog/pkg/errors"
)

// TxRunner serializes transactions over an InMemoryCategoryStore and rolls
// the store back to a snapshot when fn fails or ctx is cancelled.
type TxRunner struct {
	mu    sync.Mutex
	store *InMemoryCategoryStore

	recordMu sync.Mutex
	policies []ports.TxPolicy
	commits  int

	// FailCommit, when set, is returned instead of committing.
	FailCommit error
}

// NewTxRunner creates a runner for store
func NewTxRunner(store *InMemoryCategoryStore) *TxRunner {
	return &TxRunner{store: store}
}

// InTx implements ports.TxRunner
func (r *TxRunner) InTx(ctx context.Context, policy ports.TxPolicy, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Normalize(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.recordMu.Lock()
	r.policies = append(r.policies, policy)
	r.recordMu.Unlock()

	snap := r.store.snapshot()
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = pkgerrors.Normalize(ctx.Err())
	}
	if err == nil && r.FailCommit != nil {
		err = r.FailCommit
	}
	if err != nil {
		r.store.restore(snap)
		return err
	}

	r.recordMu.Lock()
	r.commits++
	r.recordMu.Unlock()
	return nil
}

// Policies returns the policies of every transaction started so far.
func (r *TxRunner) Policies() []ports.TxPolicy {
	r.recordMu.Lock()
	defer r.recordMu.Unlock()
	out := make([]ports.TxPolicy, len(r.policies))
	copy(out, r.policies)
	return out
}

// Commits returns the number of committed transactions.
func (r *TxRunner) Commits() int {
	r.recordMu.Lock()
	defer r.recordMu.Unlock()
	return r.commits
}
