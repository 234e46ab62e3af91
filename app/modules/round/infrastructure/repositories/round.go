package rounddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	roundtypes "github.com/Black-And-White-Club/pushup-bot/app/modules/round/domain/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// lifecycleLockKey names the advisory lock guarding round creation.
const lifecycleLockKey = "round-lifecycle"

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new round repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// LockLifecycle takes pg_advisory_xact_lock keyed on the lifecycle path. The
// lock is released when the surrounding transaction ends.
func (r *Impl) LockLifecycle(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", lifecycleLockKey).Exec(ctx); err != nil {
		return fmt.Errorf("failed to acquire round lifecycle lock: %w", err)
	}
	return nil
}

// CreateRound inserts a new round. A second ACTIVE round is rejected by the
// rounds_single_active index and reported as ErrActiveRoundExists.
func (r *Impl) CreateRound(ctx context.Context, db bun.IDB, round *roundtypes.Round) error {
	db = r.resolveDB(db)
	row := &Round{
		ID:          round.ID,
		StartTime:   round.StartTime,
		Status:      round.Status,
		CompletedAt: round.CompletedAt,
	}
	if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrActiveRoundExists
		}
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// GetRound retrieves a round by id.
func (r *Impl) GetRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error) {
	db = r.resolveDB(db)
	row := new(Round)
	err := db.NewSelect().
		Model(row).
		Where("r.id = ?", roundID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return row.ToDomain(), nil
}

// GetActiveRound returns the single ACTIVE round without locking it.
func (r *Impl) GetActiveRound(ctx context.Context, db bun.IDB) (*roundtypes.Round, error) {
	return r.getActiveRound(ctx, r.resolveDB(db), false)
}

// GetActiveRoundForUpdate returns the ACTIVE round locked for update, so a
// concurrent rollover waits on the row.
func (r *Impl) GetActiveRoundForUpdate(ctx context.Context, db bun.IDB) (*roundtypes.Round, error) {
	return r.getActiveRound(ctx, r.resolveDB(db), true)
}

func (r *Impl) getActiveRound(ctx context.Context, db bun.IDB, forUpdate bool) (*roundtypes.Round, error) {
	row := new(Round)
	q := db.NewSelect().
		Model(row).
		Where("r.status = ?", roundtypes.StatusActive).
		OrderExpr("r.start_time DESC").
		Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active round: %w", err)
	}
	return row.ToDomain(), nil
}

// LockActiveRound share-locks an ACTIVE round so completion cannot commit
// until the caller's transaction ends.
func (r *Impl) LockActiveRound(ctx context.Context, db bun.IDB, roundID uuid.UUID) (*roundtypes.Round, error) {
	db = r.resolveDB(db)
	row := new(Round)
	err := db.NewSelect().
		Model(row).
		Where("r.id = ?", roundID).
		Where("r.status = ?", roundtypes.StatusActive).
		For("SHARE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock active round: %w", err)
	}
	return row.ToDomain(), nil
}

// MarkCompleted performs the ACTIVE -> COMPLETED transition.
func (r *Impl) MarkCompleted(ctx context.Context, db bun.IDB, roundID uuid.UUID, at time.Time) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Round)(nil)).
		Set("status = ?", roundtypes.StatusCompleted).
		Set("completed_at = ?", at.UTC()).
		Where("id = ?", roundID).
		Where("status = ?", roundtypes.StatusActive).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to complete round: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// ListRecentRounds returns the newest rounds with their participant counts.
func (r *Impl) ListRecentRounds(ctx context.Context, db bun.IDB, limit int) ([]RoundWithCount, error) {
	db = r.resolveDB(db)
	var rows []RoundWithCount
	err := db.NewSelect().
		Model(&rows).
		ColumnExpr("r.*").
		ColumnExpr("(SELECT COUNT(*) FROM round_participants AS rp WHERE rp.round_id = r.id) AS participant_count").
		OrderExpr("r.start_time DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent rounds: %w", err)
	}
	return rows, nil
}

// AddContribution adds amount to the participant's total in one statement,
// inserting the row on first contribution.
func (r *Impl) AddContribution(ctx context.Context, db bun.IDB, roundID uuid.UUID, userID roundtypes.UserID, displayName string, amount int64, at time.Time) (int64, error) {
	db = r.resolveDB(db)
	var total int64
	err := db.NewRaw(`
		INSERT INTO round_participants (round_id, user_id, display_name, total_contribution, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, user_id) DO UPDATE
		SET total_contribution = round_participants.total_contribution + EXCLUDED.total_contribution,
			updated_at = EXCLUDED.updated_at
		RETURNING total_contribution`,
		roundID, userID, displayName, amount, at.UTC(), at.UTC(),
	).Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("failed to add contribution: %w", err)
	}
	return total, nil
}

// ListParticipants returns participants ranked by total, earliest joiner first
// among equal totals.
func (r *Impl) ListParticipants(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.Participant, error) {
	db = r.resolveDB(db)
	var rows []Participant
	err := db.NewSelect().
		Model(&rows).
		Where("rp.round_id = ?", roundID).
		OrderExpr("rp.total_contribution DESC, rp.created_at ASC, rp.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	participants := make([]roundtypes.Participant, 0, len(rows))
	for i := range rows {
		participants = append(participants, rows[i].ToDomain())
	}
	return participants, nil
}

// ListWinners returns the tie set of each round in roundIDs.
func (r *Impl) ListWinners(ctx context.Context, db bun.IDB, roundIDs []uuid.UUID) (map[uuid.UUID][]roundtypes.Participant, error) {
	winners := make(map[uuid.UUID][]roundtypes.Participant, len(roundIDs))
	if len(roundIDs) == 0 {
		return winners, nil
	}
	db = r.resolveDB(db)
	var rows []Participant
	err := db.NewSelect().
		Model(&rows).
		Where("rp.round_id IN (?)", bun.In(roundIDs)).
		Where("rp.total_contribution = (SELECT MAX(m.total_contribution) FROM round_participants AS m WHERE m.round_id = rp.round_id)").
		OrderExpr("rp.created_at ASC, rp.user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list round winners: %w", err)
	}
	for i := range rows {
		winners[rows[i].RoundID] = append(winners[rows[i].RoundID], rows[i].ToDomain())
	}
	return winners, nil
}

// AppendAuditEntries inserts entries in order. Entry ids are assigned by the
// database and returned into the slice.
func (r *Impl) AppendAuditEntries(ctx context.Context, db bun.IDB, entries []roundtypes.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	rows := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, AuditEntry{RoundID: e.RoundID, CreatedAt: e.Timestamp.UTC(), Message: e.Message})
	}
	if _, err := db.NewInsert().Model(&rows).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to append audit entries: %w", err)
	}
	for i := range rows {
		entries[i].ID = rows[i].ID
	}
	return nil
}

// ListAuditEntries returns a round's audit trail, oldest first.
func (r *Impl) ListAuditEntries(ctx context.Context, db bun.IDB, roundID uuid.UUID) ([]roundtypes.AuditEntry, error) {
	db = r.resolveDB(db)
	var rows []AuditEntry
	err := db.NewSelect().
		Model(&rows).
		Where("ra.round_id = ?", roundID).
		OrderExpr("ra.created_at ASC, ra.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	entries := make([]roundtypes.AuditEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, nil
}

// InsertContributionRecord appends one submission to the history table.
func (r *Impl) InsertContributionRecord(ctx context.Context, db bun.IDB, record *roundtypes.ContributionRecord) error {
	db = r.resolveDB(db)
	row := &ContributionRecord{
		RoundID:   record.RoundID,
		UserID:    record.UserID,
		Amount:    record.Amount,
		CreatedAt: record.RecordedAt.UTC(),
	}
	if _, err := db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert contribution record: %w", err)
	}
	record.ID = row.ID
	return nil
}

// ListUserContributions returns the user's newest submissions first.
func (r *Impl) ListUserContributions(ctx context.Context, db bun.IDB, userID roundtypes.UserID, limit int) ([]roundtypes.ContributionRecord, error) {
	db = r.resolveDB(db)
	var rows []ContributionRecord
	err := db.NewSelect().
		Model(&rows).
		Where("rc.user_id = ?", userID).
		OrderExpr("rc.created_at DESC, rc.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user contributions: %w", err)
	}
	records := make([]roundtypes.ContributionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].ToDomain())
	}
	return records, nil
}

// GetUserContributionStats aggregates a user's history. A user with no
// submissions gets zeroes.
func (r *Impl) GetUserContributionStats(ctx context.Context, db bun.IDB, userID roundtypes.UserID) (roundtypes.ContributionStats, error) {
	db = r.resolveDB(db)
	var stats roundtypes.ContributionStats
	err := db.NewSelect().
		Model((*ContributionRecord)(nil)).
		ColumnExpr("COUNT(*) AS entry_count").
		ColumnExpr("COALESCE(SUM(rc.amount), 0) AS total").
		ColumnExpr("COALESCE(AVG(rc.amount), 0)::float8 AS average").
		ColumnExpr("COALESCE(MAX(rc.amount), 0) AS max").
		Where("rc.user_id = ?", userID).
		Scan(ctx, &stats.EntryCount, &stats.Total, &stats.Average, &stats.Max)
	if err != nil {
		return roundtypes.ContributionStats{}, fmt.Errorf("failed to aggregate user contributions: %w", err)
	}
	return stats, nil
}
