package ports

import (
	"context"
	"time"
)

// IsolationLevel is an engine-neutral isolation level.
type IsolationLevel string

const (
	IsolationDefault        IsolationLevel = ""
	IsolationReadCommitted  IsolationLevel = "read committed"
	IsolationRepeatableRead IsolationLevel = "repeatable read"
	IsolationSerializable   IsolationLevel = "serializable"
)

// Defaults for structural mutations.
const (
	StructuralLockTimeout      = 2 * time.Second
	StructuralStatementTimeout = 30 * time.Second
	DefaultMaxAttempts         = 3
)

// TxPolicy is attached to a command and read by the TxRunner. Zero
// timeouts leave the engine default in place.
type TxPolicy struct {
	Isolation        IsolationLevel
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	// MaxAttempts bounds retries of serialization failures and deadlocks.
	MaxAttempts int
}

// DefaultTxPolicy is used for ordinary field updates.
func DefaultTxPolicy() TxPolicy {
	return TxPolicy{Isolation: IsolationReadCommitted, MaxAttempts: 1}
}

// StructuralTxPolicy is used for commands touching several rows or reading
// ancestor state they depend on.
func StructuralTxPolicy() TxPolicy {
	return TxPolicy{
		Isolation:        IsolationSerializable,
		LockTimeout:      StructuralLockTimeout,
		StatementTimeout: StructuralStatementTimeout,
		MaxAttempts:      DefaultMaxAttempts,
	}
}

// Attempts never returns less than 1.
func (p TxPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// PolicyCarrier is implemented by commands that choose their own policy.
type PolicyCarrier interface {
	TxPolicy() TxPolicy
}

// TxRunner runs fn inside one storage transaction per attempt. fn must be
// safe to re-run: it reloads what it reads. The transaction rolls back when
// fn fails or ctx is cancelled before commit.
type TxRunner interface {
	InTx(ctx context.Context, policy TxPolicy, fn func(ctx context.Context) error) error
}
