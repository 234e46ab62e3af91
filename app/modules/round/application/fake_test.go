package roundservice

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	roundmetrics "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/metrics"
	rounddb "github.com/Black-And-White-Club/pushup-bot/app/modules/round/infrastructure/repositories"
	roundutil "github.com/Black-And-White-Club/pushup-bot/app/modules/round/utils"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Store
// ------------------------

// fakeStore is an in-memory round repository, account lookup, rating store
// and transaction runner. Transactions are serialized and roll back by
// restoring a snapshot taken when they began.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	rounds       map[uuid.UUID]roundtypes.Round
	participants map[uuid.UUID]map[roundtypes.UserID]roundtypes.Participant
	audit        []roundtypes.AuditEntry
	nextAuditID  int64
	records      []roundtypes.ContributionRecord
	ratings      map[roundtypes.UserID]int
	names        map[roundtypes.UserID]string

	CreateRoundFunc     func() error
	LockActiveRoundFunc func(roundID uuid.UUID)
	ApplyRatingFunc     func(userID roundtypes.UserID) error
	AppendAuditFunc     func() error
	GetRoundFunc        func(roundID uuid.UUID) error
	InsertRecordFunc    func() error
	RatingFunc          func(userID roundtypes.UserID) error

	// replay holds writes made by another session during the current
	// transaction; they survive its rollback.
	replay []func()

	lifecycleLocks int
	roundsCreated  int
	ratingWrites   int
	lastLimit      int
}

type fakeSnapshot struct {
	rounds       map[uuid.UUID]roundtypes.Round
	participants map[uuid.UUID]map[roundtypes.UserID]roundtypes.Participant
	audit        []roundtypes.AuditEntry
	nextAuditID  int64
	records      []roundtypes.ContributionRecord
	ratings      map[roundtypes.UserID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rounds:       make(map[uuid.UUID]roundtypes.Round),
		participants: make(map[uuid.UUID]map[roundtypes.UserID]roundtypes.Participant),
		ratings:      make(map[roundtypes.UserID]int),
		names:        make(map[roundtypes.UserID]string),
	}
}

// addUser registers an account with the default rating.
func (f *fakeStore) addUser(id roundtypes.UserID, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[id] = name
	f.ratings[id] = roundtypes.DefaultRating
}

// seedRound inserts a round directly, bypassing the resolver.
func (f *fakeStore) seedRound(start time.Time, status roundtypes.Status) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.rounds[id] = roundtypes.Round{ID: id, StartTime: start.UTC(), Status: status}
	return id
}

func (f *fakeStore) seedParticipant(roundID uuid.UUID, userID roundtypes.UserID, total int64, joined time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participants[roundID] == nil {
		f.participants[roundID] = make(map[roundtypes.UserID]roundtypes.Participant)
	}
	f.participants[roundID][userID] = roundtypes.Participant{
		RoundID:           roundID,
		UserID:            userID,
		DisplayName:       f.names[userID],
		TotalContribution: total,
		JoinedAt:          joined.UTC(),
	}
}

func (f *fakeStore) round(id uuid.UUID) roundtypes.Round {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rounds[id]
}

func (f *fakeStore) rating(id roundtypes.UserID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ratings[id]
}

func (f *fakeStore) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rounds {
		if r.Status == roundtypes.StatusActive {
			n++
		}
	}
	return n
}

func (f *fakeStore) auditMessages(roundID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var msgs []string
	for _, e := range f.audit {
		if e.RoundID == roundID {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func (f *fakeStore) total(roundID uuid.UUID, userID roundtypes.UserID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants[roundID][userID].TotalContribution
}

func (f *fakeStore) snapshot() fakeSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	participants := make(map[uuid.UUID]map[roundtypes.UserID]roundtypes.Participant, len(f.participants))
	for id, ps := range f.participants {
		participants[id] = maps.Clone(ps)
	}
	return fakeSnapshot{
		rounds:       maps.Clone(f.rounds),
		participants: participants,
		audit:        slices.Clone(f.audit),
		nextAuditID:  f.nextAuditID,
		records:      slices.Clone(f.records),
		ratings:      maps.Clone(f.ratings),
	}
}

func (f *fakeStore) restore(s fakeSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = s.rounds
	f.participants = s.participants
	f.audit = s.audit
	f.nextAuditID = s.nextAuditID
	f.records = s.records
	f.ratings = s.ratings
}

// RunInTx implements TxRunner.
func (f *fakeStore) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	snap := f.snapshot()
	f.replay = nil
	err := fn(ctx, bun.Tx{})
	if err != nil {
		f.restore(snap)
		for _, op := range f.replay {
			op()
		}
	}
	f.replay = nil
	return err
}

// concurrently applies op as if another session committed it while the
// current transaction is open.
func (f *fakeStore) concurrently(op func()) {
	op()
	f.replay = append(f.replay, op)
}

// rounddb.Repository

func (f *fakeStore) LockLifecycle(ctx context.Context, db bun.IDB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lifecycleLocks++
	return nil
}

func (f *fakeStore) CreateRound(ctx context.Context, db bun.IDB, round *roundtypes.Round) error {
	if f.CreateRoundFunc != nil {
		if err := f.CreateRoundFunc(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rounds {
		if r.Status == roundtypes.StatusActive && round.Status == roundtypes.StatusActive {
			return rounddb.ErrActiveRoundExists
		}
	}
	f.rounds[round.ID] = *round
	f.roundsCreated++
	return nil
}

func (f *fakeStore) GetRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error) {
	if f.GetRoundFunc != nil {
		if err := f.GetRoundFunc(roundID); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[roundID]
	if !ok {
		return nil, rounddb.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) GetActiveRound(ctx context.Context, db bun.IDB) (*roundtypes.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active *roundtypes.Round
	for _, r := range f.rounds {
		if r.Status != roundtypes.StatusActive {
			continue
		}
		if active == nil || r.StartTime.After(active.StartTime) {
			r := r
			active = &r
		}
	}
	if active == nil {
		return nil, rounddb.ErrNotFound
	}
	return active, nil
}

func (f *fakeStore) GetActiveRoundForUpdate(ctx context.Context, db bun.IDB) (*roundtypes.Round, error) {
	return f.GetActiveRound(ctx, db)
}

func (f *fakeStore) LockActiveRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error) {
	if f.LockActiveRoundFunc != nil {
		f.LockActiveRoundFunc(roundID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[roundID]
	if !ok || r.Status != roundtypes.StatusActive {
		return nil, rounddb.ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) MarkCompleted(ctx context.Context, db bun.IDB, roundID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[roundID]
	if !ok || r.Status != roundtypes.StatusActive {
		return false, nil
	}
	at = at.UTC()
	r.Status = roundtypes.StatusCompleted
	r.CompletedAt = &at
	f.rounds[roundID] = r
	return true, nil
}

// completeDirectly simulates another process completing the round.
func (f *fakeStore) completeDirectly(roundID uuid.UUID, at time.Time) {
	_, _ = f.MarkCompleted(context.Background(), nil, roundID, at)
}

func (f *fakeStore) ListRecentRounds(ctx context.Context, db bun.IDB, limit int) ([]rounddb.RoundWithCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	rounds := slices.Collect(maps.Values(f.rounds))
	slices.SortFunc(rounds, func(a, b roundtypes.Round) int { return b.StartTime.Compare(a.StartTime) })
	if len(rounds) > limit {
		rounds = rounds[:limit]
	}
	rows := make([]rounddb.RoundWithCount, 0, len(rounds))
	for _, r := range rounds {
		rows = append(rows, rounddb.RoundWithCount{
			Round: rounddb.Round{
				ID:          r.ID,
				StartTime:   r.StartTime,
				Status:      r.Status,
				CompletedAt: r.CompletedAt,
			},
			ParticipantCount: len(f.participants[r.ID]),
		})
	}
	return rows, nil
}

func (f *fakeStore) AddContribution(ctx context.Context, db bun.IDB, roundID uuid.UUID, userID roundtypes.UserID, displayName string, amount int64, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.participants[roundID] == nil {
		f.participants[roundID] = make(map[roundtypes.UserID]roundtypes.Participant)
	}
	p, ok := f.participants[roundID][userID]
	if !ok {
		p = roundtypes.Participant{RoundID: roundID, UserID: userID, DisplayName: displayName, JoinedAt: at.UTC()}
	}
	p.TotalContribution += amount
	f.participants[roundID][userID] = p
	return p.TotalContribution, nil
}

func (f *fakeStore) ListParticipants(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := slices.Collect(maps.Values(f.participants[roundID]))
	roundtypes.SortParticipants(ps)
	return ps, nil
}

func (f *fakeStore) ListWinners(ctx context.Context, db bun.IDB, roundIDs []uuid.UUID) (map[uuid.UUID][]roundtypes.Participant, error) {
	winners := make(map[uuid.UUID][]roundtypes.Participant)
	for _, id := range roundIDs {
		ps, _ := f.ListParticipants(ctx, db, id)
		for _, p := range ps {
			if p.TotalContribution == ps[0].TotalContribution {
				winners[id] = append(winners[id], p)
			}
		}
	}
	return winners, nil
}

func (f *fakeStore) InsertContributionRecord(ctx context.Context, db bun.IDB, record *roundtypes.ContributionRecord) error {
	if f.InsertRecordFunc != nil {
		if err := f.InsertRecordFunc(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = int64(len(f.records) + 1)
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeStore) ListUserContributions(ctx context.Context, db bun.IDB, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	var out []roundtypes.ContributionRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeStore) GetUserContributionStats(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (roundtypes.ContributionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stats roundtypes.ContributionStats
	for _, r := range f.records {
		if r.UserID != userID {
			continue
		}
		stats.EntryCount++
		stats.Total += r.Amount
		stats.Max = max(stats.Max, r.Amount)
	}
	if stats.EntryCount > 0 {
		stats.Average = float64(stats.Total) / float64(stats.EntryCount)
	}
	return stats, nil
}

func (f *fakeStore) userRecords(userID roundtypes.UserID) []roundtypes.ContributionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []roundtypes.ContributionRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeStore) AppendAuditEntries(ctx context.Context, db bun.IDB, entries []roundtypes.AuditEntry) error {
	if f.AppendAuditFunc != nil {
		if err := f.AppendAuditFunc(); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range entries {
		f.nextAuditID++
		entries[i].ID = f.nextAuditID
		f.audit = append(f.audit, entries[i])
	}
	return nil
}

func (f *fakeStore) ListAuditEntries(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []roundtypes.AuditEntry
	for _, e := range f.audit {
		if e.RoundID == roundID {
			entries = append(entries, e)
		}
	}
	slices.SortStableFunc(entries, func(a, b roundtypes.AuditEntry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return entries, nil
}

// AccountLookup

func (f *fakeStore) DisplayName(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.names[userID]; ok {
		return name, nil
	}
	return roundtypes.UnknownDisplayName, nil
}

// RatingStore

func (f *fakeStore) Rating(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (int, error) {
	if f.RatingFunc != nil {
		if err := f.RatingFunc(userID); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rating, ok := f.ratings[userID]
	if !ok {
		return 0, ErrRatingRecordMissing
	}
	return rating, nil
}

func (f *fakeStore) ApplyRatingDelta(ctx context.Context, db bun.IDB, userID roundtypes.UserID, delta int) (int, error) {
	if f.ApplyRatingFunc != nil {
		if err := f.ApplyRatingFunc(userID); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rating, ok := f.ratings[userID]
	if !ok {
		return 0, ErrRatingRecordMissing
	}
	rating += delta
	f.ratings[userID] = rating
	f.ratingWrites++
	return rating, nil
}

var (
	_ rounddb.Repository = (*fakeStore)(nil)
	_ TxRunner           = (*fakeStore)(nil)
	_ AccountLookup      = (*fakeStore)(nil)
	_ RatingStore        = (*fakeStore)(nil)
)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu        sync.Mutex
	PublishFn func(topic string, msgs ...*message.Message) error
	published map[string][]*message.Message
}

func (p *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.PublishFn != nil {
		if err := p.PublishFn(topic, msgs...); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *FakePublisher) Messages(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.published[topic])
}

// ------------------------
// Helpers
// ------------------------

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errBoom = errors.New("boom")

type testEnv struct {
	svc   *RoundService
	store *fakeStore
	clock *roundutil.FakeClock
	pub   *FakePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	clock := roundutil.NewFakeClock(t0)
	pub := &FakePublisher{}
	svc := NewRoundService(
		store,
		store,
		store,
		pub,
		clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		roundmetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		store,
		Config{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	)
	return &testEnv{svc: svc, store: store, clock: clock, pub: pub}
}
