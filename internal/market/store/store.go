package store

import (
	"context"
	"errors"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Sub-repositories are reached through methods so a
// Tx hands out repos bound to the transaction and nothing else.
type Store interface {
	Users() Users
	Chambers() Chambers
	ResetTokens() ResetTokens
	ResetAttempts() ResetAttempts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil.
	// fn must only use the repos of the Tx it is given.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// CandidateQuery narrows the users considered for identity resolution.
// With both fields empty every user is returned.
type CandidateQuery struct {
	PhoneSuffix string // digits the stored phone must end with
	PhoneExact  string // digits the stored phone must equal
}

type Users interface {
	// CreateUser inserts a new user (id is provided by the caller via ULID).
	// A duplicate email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by lower-cased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListResetCandidates returns users ordered by id.
	ListResetCandidates(ctx context.Context, q CandidateQuery) ([]domain.User, error)

	// ListPendingUsers returns active, unapproved users ordered by id. An
	// empty chamberID lists every chamber.
	ListPendingUsers(ctx context.Context, chamberID string) ([]domain.User, error)

	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
	Approve(ctx context.Context, userID, by string, at time.Time) error
	SetActive(ctx context.Context, userID string, active bool, at time.Time) error
	SetSuspended(ctx context.Context, userID string, suspended bool, by string, at time.Time) error

	// AnyAdminExists reports whether at least one active admin exists.
	AnyAdminExists(ctx context.Context) (bool, error)
}

type Chambers interface {
	// CreateChamber returns ErrAlreadyExists on a case-insensitive name clash.
	CreateChamber(ctx context.Context, c domain.Chamber) error
	GetChamber(ctx context.Context, id string) (domain.Chamber, error)

	// ListChambers is ordered by name.
	ListChambers(ctx context.Context) ([]domain.Chamber, error)
	UpdateChamber(ctx context.Context, c domain.Chamber) error
}

type ResetTokens interface {
	GetResetToken(ctx context.Context, userID string) (domain.ResetToken, error)

	// UpsertResetToken replaces the user's row and clears used_at.
	UpsertResetToken(ctx context.Context, t domain.ResetToken) error

	MarkResetTokenUsed(ctx context.Context, userID string, at time.Time) error

	// DeleteStaleResetTokens removes rows that expired or were consumed
	// before cutoff.
	DeleteStaleResetTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type ResetAttempts interface {
	AppendResetAttempt(ctx context.Context, a domain.ResetAttempt) error

	// ListResetAttempts returns the newest attempts first.
	ListResetAttempts(ctx context.Context, limit int) ([]domain.ResetAttempt, error)

	DeleteResetAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
