package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
)

type planRow struct {
	plan    domain.ChitPlan
	deleted bool
}

type tables struct {
	merchants   map[uuid.UUID]domain.MerchantAccount
	renewals    map[uuid.UUID]domain.RenewalRecord
	plans       map[uuid.UUID]planRow
	subs        map[uuid.UUID]domain.Subscription
	payments    map[uuid.UUID]domain.PaymentRecord
	withdrawals map[uuid.UUID]domain.WithdrawalRequest
	settlements map[uuid.UUID]domain.Settlement // keyed by subscription ID
}

func newTables() tables {
	return tables{
		merchants:   make(map[uuid.UUID]domain.MerchantAccount),
		renewals:    make(map[uuid.UUID]domain.RenewalRecord),
		plans:       make(map[uuid.UUID]planRow),
		subs:        make(map[uuid.UUID]domain.Subscription),
		payments:    make(map[uuid.UUID]domain.PaymentRecord),
		withdrawals: make(map[uuid.UUID]domain.WithdrawalRequest),
		settlements: make(map[uuid.UUID]domain.Settlement),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t tables) clone() tables {
	return tables{
		merchants:   cloneMap(t.merchants),
		renewals:    cloneMap(t.renewals),
		plans:       cloneMap(t.plans),
		subs:        cloneMap(t.subs),
		payments:    cloneMap(t.payments),
		withdrawals: cloneMap(t.withdrawals),
		settlements: cloneMap(t.settlements),
	}
}

// Store is an in-process implementation of every repository port and of
// ports.TransactionManager. A transaction works on a private copy of the
// tables that replaces the committed tables only when fn succeeds, so reads
// outside the transaction never see its uncommitted writes. Write
// transactions are serialized by a single mutex, which gives the same
// observable behavior as row locks for the service layer. Values are copied
// in and out so callers never share memory with the store.
type Store struct {
	txMu sync.Mutex   // serializes writers
	mu   sync.RWMutex // guards data
	data tables
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newTables()}
}

var _ ports.TransactionManager = (*Store)(nil)

type txKey struct{ store *Store }

// working returns the tables of the transaction carried by ctx, if any
func (s *Store) working(ctx context.Context) (*tables, bool) {
	t, ok := ctx.Value(txKey{s}).(*tables)
	return t, ok
}

// WithTransaction runs fn as one atomic unit. The pgx.Tx passed to fn is nil;
// memory repositories find the transaction through ctx instead.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.working(ctx); ok {
		return fn(ctx, nil)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{s}, &work), nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

// WithReadOnlyTransaction runs fn against committed data without taking the
// write lock
func (s *Store) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, nil)
}

func (s *Store) read(ctx context.Context, fn func(t *tables)) {
	if work, ok := s.working(ctx); ok {
		fn(work)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

// write applies fn to the transaction's tables, or commits it directly when
// ctx carries no transaction
func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if work, ok := s.working(ctx); ok {
		return fn(work)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	work := s.data.clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}
