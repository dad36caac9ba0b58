package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/jmoiron/sqlx"
)

type usersRepo struct {
	q sqlx.ExtContext
	d Dialect
}

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Name         string         `db:"name"`
	Company      string         `db:"company"`
	Phone        string         `db:"phone"`
	ChamberID    sql.NullString `db:"chamber_id"`
	Role         string         `db:"role"`
	Active       bool           `db:"active"`
	Suspended    bool           `db:"suspended"`
	Approved     bool           `db:"approved"`
	ApprovedAt   sql.NullString `db:"approved_at"`
	ApprovedBy   sql.NullString `db:"approved_by"`
	SuspendedAt  sql.NullString `db:"suspended_at"`
	SuspendedBy  sql.NullString `db:"suspended_by"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

const userColumns = `id, email, password_hash, name, company, phone, chamber_id, role,
	active, suspended, approved, approved_at, approved_by, suspended_at, suspended_by,
	created_at, updated_at`

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Company:      r.Company,
		Phone:        r.Phone,
		ChamberID:    r.ChamberID.String,
		Role:         domain.Role(r.Role),
		Active:       r.Active,
		Suspended:    r.Suspended,
		Approved:     r.Approved,
		ApprovedAt:   parseNullTS(r.ApprovedAt),
		ApprovedBy:   r.ApprovedBy.String,
		SuspendedAt:  parseNullTS(r.SuspendedAt),
		SuspendedBy:  r.SuspendedBy.String,
		CreatedAt:    parseTS(r.CreatedAt),
		UpdatedAt:    parseTS(r.UpdatedAt),
	}
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
INSERT INTO users
  (id, email, password_hash, name, company, phone, phone_digits, chamber_id, role,
   active, suspended, approved, approved_at, approved_by, suspended_at, suspended_by,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash,
		u.Name,
		u.Company,
		u.Phone,
		identity.Digits(u.Phone),
		nullString(u.ChamberID),
		string(u.Role),
		u.Active,
		u.Suspended,
		u.Approved,
		nullTS(u.ApprovedAt),
		nullString(u.ApprovedBy),
		nullTS(u.SuspendedAt),
		nullString(u.SuspendedBy),
		ts(u.CreatedAt),
		ts(u.UpdatedAt),
	)
	if err != nil && r.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *usersRepo) ListResetCandidates(ctx context.Context, cq store.CandidateQuery) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	switch {
	case cq.PhoneSuffix != "":
		query += ` WHERE phone_digits LIKE ?`
		args = append(args, "%"+cq.PhoneSuffix)
	case cq.PhoneExact != "":
		query += ` WHERE phone_digits = ?`
		args = append(args, cq.PhoneExact)
	}
	query += ` ORDER BY id`
	return r.list(ctx, query, args...)
}

func (r *usersRepo) ListPendingUsers(ctx context.Context, chamberID string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE approved = ? AND active = ?`
	args := []any{false, true}
	if chamberID != "" {
		query += ` AND chamber_id = ?`
		args = append(args, chamberID)
	}
	query += ` ORDER BY id`
	return r.list(ctx, query, args...)
}

func (r *usersRepo) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	return mapExec(r.q.ExecContext(ctx, r.q.Rebind(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		hash, ts(at), userID))
}

func (r *usersRepo) Approve(ctx context.Context, userID, by string, at time.Time) error {
	return mapExec(r.q.ExecContext(ctx, r.q.Rebind(
		`UPDATE users SET approved = ?, approved_at = ?, approved_by = ?, updated_at = ? WHERE id = ?`),
		true, ts(at), nullString(by), ts(at), userID))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool, at time.Time) error {
	return mapExec(r.q.ExecContext(ctx, r.q.Rebind(
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`),
		active, ts(at), userID))
}

func (r *usersRepo) SetSuspended(ctx context.Context, userID string, suspended bool, by string, at time.Time) error {
	var suspendedAt sql.NullString
	if suspended {
		suspendedAt = nullTS(&at)
	} else {
		by = ""
	}
	return mapExec(r.q.ExecContext(ctx, r.q.Rebind(
		`UPDATE users SET suspended = ?, suspended_at = ?, suspended_by = ?, updated_at = ? WHERE id = ?`),
		suspended, suspendedAt, nullString(by), ts(at), userID))
}

func (r *usersRepo) AnyAdminExists(ctx context.Context) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(
		`SELECT COUNT(*) FROM users WHERE role = ? AND active = ?`),
		string(domain.RoleAdmin), true)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
