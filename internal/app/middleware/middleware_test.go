package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hotelres/internal/app/commands"
	"hotelres/internal/app/outbox"
	"hotelres/internal/app/queries"
	"hotelres/internal/app/uow"
)

type echoCommand struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	IDKey string `json:"-"`
}

func (echoCommand) Key() string              { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IDKey }
func (echoCommand) ResultPrototype() any     { return &echoResult{} }

type echoResult struct {
	Name  string `json:"name"`
	Calls int    `json:"calls"`
}

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

type fakeUnit struct {
	uow.UnitOfWork
	commitErr error
	committed bool
	rolled    bool
}

func (u *fakeUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rolled = true
	return nil
}

type fakeFactory struct {
	mu    sync.Mutex
	units []*fakeUnit
	// commitErrs are handed to successive units.
	commitErrs []error
}

func (f *fakeFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUnit{}
	if len(f.units) < len(f.commitErrs) {
		u.commitErr = f.commitErrs[len(f.units)]
	}
	f.units = append(f.units, u)
	return u, nil
}

func TestTransactionRetriesConcurrentUpdates(t *testing.T) {
	factory := &fakeFactory{commitErrs: []error{uow.ErrConcurrentUpdate, uow.ErrConcurrentUpdate}}
	calls := 0
	bus := ChainCommands(busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if _, ok := uow.FromContext(ctx); !ok {
			t.Fatal("handler ran without a unit of work")
		}
		calls++
		return &echoResult{Calls: calls}, nil
	}), Transaction(factory, TransactionConfig{MaxAttempts: 3}))

	res, err := bus.Dispatch(context.Background(), echoCommand{Name: "a"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if calls != 3 || res.(*echoResult).Calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
	if len(factory.units) != 3 || !factory.units[2].committed || !factory.units[0].rolled {
		t.Fatalf("units = %+v", factory.units)
	}
}

func TestTransactionGivesUpAfterMaxAttempts(t *testing.T) {
	factory := &fakeFactory{commitErrs: []error{uow.ErrConcurrentUpdate, uow.ErrConcurrentUpdate}}
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		return &echoResult{}, nil
	}), Transaction(factory, TransactionConfig{MaxAttempts: 2}))

	if _, err := bus.Dispatch(context.Background(), echoCommand{Name: "a"}); !errors.Is(err, uow.ErrConcurrentUpdate) {
		t.Fatalf("err = %v", err)
	}
}

func TestTransactionMapsExhaustedRetries(t *testing.T) {
	factory := &fakeFactory{commitErrs: []error{uow.ErrConcurrentUpdate, uow.ErrConcurrentUpdate}}
	unavailable := errors.New("unavailable")
	var seen commands.Command
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		return &echoResult{}, nil
	}), Transaction(factory, TransactionConfig{
		MaxAttempts: 2,
		Exhausted: func(ctx context.Context, cmd commands.Command, err error) error {
			if _, ok := uow.FromContext(ctx); ok {
				t.Error("exhausted hook ran inside a unit of work")
			}
			if !errors.Is(err, uow.ErrConcurrentUpdate) {
				t.Errorf("hook err = %v", err)
			}
			seen = cmd
			return unavailable
		},
	}))

	_, err := bus.Dispatch(context.Background(), echoCommand{Name: "a"})
	if !errors.Is(err, unavailable) || errors.Is(err, uow.ErrConcurrentUpdate) {
		t.Fatalf("err = %v", err)
	}
	if seen != (echoCommand{Name: "a"}) || len(factory.units) != 2 {
		t.Fatalf("seen = %v units = %d", seen, len(factory.units))
	}
}

func TestTransactionDoesNotRetryDomainErrors(t *testing.T) {
	factory := &fakeFactory{}
	boom := errors.New("boom")
	calls := 0
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return nil, boom
	}), Transaction(factory, TransactionConfig{MaxAttempts: 5}))

	if _, err := bus.Dispatch(context.Background(), echoCommand{Name: "a"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 || !factory.units[0].rolled || factory.units[0].committed {
		t.Fatalf("calls = %d unit = %+v", calls, factory.units[0])
	}
}

type mapIdempotencyStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (s *mapIdempotencyStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	return rec, ok, nil
}

func (s *mapIdempotencyStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Key] = rec
	return nil
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	store := &mapIdempotencyStore{recs: map[string]IdempotencyRecord{}}
	calls := 0
	fail := true
	bus := ChainCommands(busFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		calls++
		if fail {
			fail = false
			return nil, errors.New("transient")
		}
		return &echoResult{Name: cmd.(echoCommand).Name, Calls: calls}, nil
	}), Idempotency(store, nil))

	ctx := context.Background()
	if _, err := bus.Dispatch(ctx, echoCommand{Name: "a", IDKey: "k1"}); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	first, err := bus.Dispatch(ctx, echoCommand{Name: "a", IDKey: "k1"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	replay, err := bus.Dispatch(ctx, echoCommand{Name: "a", IDKey: "k1"})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
	if got := replay.(*echoResult); got.Calls != first.(*echoResult).Calls || got.Name != "a" {
		t.Fatalf("replay = %+v", got)
	}
	if _, err := bus.Dispatch(ctx, echoCommand{Name: "b"}); err != nil || calls != 3 {
		t.Fatalf("keyless dispatch should bypass the store: %v calls=%d", err, calls)
	}
}

func TestValidationRejectsBadCommands(t *testing.T) {
	reached := false
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		reached = true
		return nil, nil
	}), Validation(NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), echoCommand{Email: "not-an-email"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if reached {
		t.Fatal("handler reached despite validation failure")
	}
	if _, err := bus.Dispatch(context.Background(), echoCommand{Name: "ok", Email: "a@b.io"}); err != nil || !reached {
		t.Fatalf("valid command: %v", err)
	}
}

type countingOutbox struct {
	flushes int
}

func (b *countingOutbox) Add(context.Context, outbox.EventRecord) error { return nil }

func (b *countingOutbox) Flush(context.Context) error {
	b.flushes++
	return nil
}

func TestOutboxFlushOnlyAfterSuccess(t *testing.T) {
	box := &countingOutbox{}
	fail := true
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		if fail {
			return nil, errors.New("nope")
		}
		return &echoResult{}, nil
	}), OutboxFlush(box, nil))

	_, _ = bus.Dispatch(context.Background(), echoCommand{Name: "a"})
	fail = false
	_, _ = bus.Dispatch(context.Background(), echoCommand{Name: "a"})
	if box.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", box.flushes)
	}
}

type recorded struct {
	kind, key string
	failed    bool
}

type sliceRecorder struct {
	mu  sync.Mutex
	obs []recorded
}

func (r *sliceRecorder) Observe(kind, key string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, recorded{kind: kind, key: key, failed: err != nil})
}

func TestMetricsObservesOutcome(t *testing.T) {
	rec := &sliceRecorder{}
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		return nil, errors.New("bad")
	}), Metrics(rec), Logging(nil))

	_, _ = bus.Dispatch(context.Background(), echoCommand{Name: "a"})
	if len(rec.obs) != 1 || rec.obs[0] != (recorded{kind: "command", key: "test.echo", failed: true}) {
		t.Fatalf("observations = %+v", rec.obs)
	}
}

type lookupQuery struct {
	ID string `json:"id" validate:"required"`
}

func (lookupQuery) Key() string          { return "test.lookup" }
func (q lookupQuery) CacheKey() string   { return q.ID }
func (lookupQuery) ResultPrototype() any { return &echoResult{} }

type askFunc func(ctx context.Context, q queries.Query) (any, error)

func (f askFunc) Ask(ctx context.Context, q queries.Query) (any, error) { return f(ctx, q) }

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func TestQueryCacheServesRepeatedReads(t *testing.T) {
	cache := &mapCache{data: map[string][]byte{}}
	calls := 0
	bus := ChainQueries(askFunc(func(_ context.Context, q queries.Query) (any, error) {
		calls++
		return &echoResult{Name: q.(lookupQuery).ID, Calls: calls}, nil
	}), QueryValidation(NewStructValidator()), QueryCache(cache, time.Minute, nil, nil))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := queries.Ask[lookupQuery, *echoResult](ctx, bus, lookupQuery{ID: "x"})
		if err != nil {
			t.Fatalf("ask: %v", err)
		}
		if res.Name != "x" || res.Calls != 1 {
			t.Fatalf("result = %+v", res)
		}
	}
	if _, err := queries.Ask[lookupQuery, *echoResult](ctx, bus, lookupQuery{ID: "y"}); err != nil || calls != 2 {
		t.Fatalf("distinct key should miss: %v calls=%d", err, calls)
	}
	if _, err := queries.Ask[lookupQuery, *echoResult](ctx, bus, lookupQuery{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty id err = %v", err)
	}
}

func TestQueryCacheDisabledWithoutTTL(t *testing.T) {
	if QueryCache(&mapCache{}, 0, nil, nil) != nil {
		t.Fatal("zero ttl should disable the cache layer")
	}
}
