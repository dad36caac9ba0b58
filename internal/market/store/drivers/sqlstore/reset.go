package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/jmoiron/sqlx"
)

type resetTokensRepo struct {
	q sqlx.ExtContext
}

type resetTokenRow struct {
	UserID    string         `db:"user_id"`
	CodeHash  string         `db:"code_hash"`
	CreatedAt string         `db:"created_at"`
	ExpiresAt string         `db:"expires_at"`
	UsedAt    sql.NullString `db:"used_at"`
}

func (r *resetTokensRepo) GetResetToken(ctx context.Context, userID string) (domain.ResetToken, error) {
	var row resetTokenRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`
SELECT user_id, code_hash, created_at, expires_at, used_at
FROM password_reset_tokens WHERE user_id = ?`), userID)
	if err != nil {
		return domain.ResetToken{}, mapNotFound(err)
	}

	tok := domain.ResetToken{
		UserID:    row.UserID,
		CodeHash:  row.CodeHash,
		CreatedAt: parseTS(row.CreatedAt),
		ExpiresAt: row.ExpiresAt,
	}
	if row.UsedAt.Valid {
		// A used_at we cannot parse still means the code was consumed.
		used := parseTS(row.UsedAt.String)
		tok.UsedAt = &used
	}
	return tok, nil
}

func (r *resetTokensRepo) UpsertResetToken(ctx context.Context, t domain.ResetToken) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
INSERT INTO password_reset_tokens (user_id, code_hash, created_at, expires_at, used_at)
VALUES (?, ?, ?, ?, NULL)
ON CONFLICT (user_id) DO UPDATE SET
  code_hash  = excluded.code_hash,
  created_at = excluded.created_at,
  expires_at = excluded.expires_at,
  used_at    = NULL`),
		t.UserID, t.CodeHash, ts(t.CreatedAt), t.ExpiresAt)
	return err
}

func (r *resetTokensRepo) MarkResetTokenUsed(ctx context.Context, userID string, at time.Time) error {
	return mapExec(r.q.ExecContext(ctx, r.q.Rebind(
		`UPDATE password_reset_tokens SET used_at = ? WHERE user_id = ?`), ts(at), userID))
}

func (r *resetTokensRepo) DeleteStaleResetTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	c := ts(cutoff)
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`
DELETE FROM password_reset_tokens
WHERE expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)`), c, c)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type resetAttemptsRepo struct {
	q sqlx.ExtContext
}

type resetAttemptRow struct {
	ID        string          `db:"id"`
	UserID    sql.NullString  `db:"user_id"`
	Outcome   string          `db:"outcome"`
	Score     sql.NullFloat64 `db:"score"`
	CreatedAt string          `db:"created_at"`
}

func (r *resetAttemptsRepo) AppendResetAttempt(ctx context.Context, a domain.ResetAttempt) error {
	var score sql.NullFloat64
	if a.Score != nil {
		score = sql.NullFloat64{Float64: *a.Score, Valid: true}
	}
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
INSERT INTO password_reset_attempts (id, user_id, outcome, score, created_at)
VALUES (?, ?, ?, ?, ?)`),
		a.ID, nullString(a.UserID), string(a.Outcome), score, ts(a.CreatedAt))
	return err
}

func (r *resetAttemptsRepo) ListResetAttempts(ctx context.Context, limit int) ([]domain.ResetAttempt, error) {
	var rows []resetAttemptRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(`
SELECT id, user_id, outcome, score, created_at
FROM password_reset_attempts ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ResetAttempt, 0, len(rows))
	for _, row := range rows {
		a := domain.ResetAttempt{
			ID:        row.ID,
			UserID:    row.UserID.String,
			Outcome:   domain.ResetOutcome(row.Outcome),
			CreatedAt: parseTS(row.CreatedAt),
		}
		if row.Score.Valid {
			s := row.Score.Float64
			a.Score = &s
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *resetAttemptsRepo) DeleteResetAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(
		`DELETE FROM password_reset_attempts WHERE created_at < ?`), ts(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
