package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/idx"
	"github.com/cpf-camaras/market/pkg/slogx"
)

var (
	ErrWeakPassword           = errors.New("password must have at least 8 characters, a letter and a digit")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrInvalidName            = errors.New("name is required")
	ErrInvalidRole            = errors.New("invalid role")
	ErrEmailTaken             = errors.New("email already registered")
	ErrChamberRequired        = errors.New("a chamber is required to register")
	ErrInvalidCredentials     = errors.New("invalid_credentials")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrAccountSuspended       = errors.New("account is suspended")
	ErrAccountPendingApproval = errors.New("account is pending approval")
	ErrUserNotFound           = errors.New("user not found")
	ErrForbiddenScope         = errors.New("user is outside the caller's scope")
)

// ValidatePassword enforces the password policy: at least 8 characters, one
// letter and one digit.
func ValidatePassword(pw string) error {
	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Actor is the authenticated caller of an administrative operation.
type Actor struct {
	UserID     string
	Role       domain.Role
	ChamberID  string
	SuperAdmin bool
}

type UserService struct {
	Store store.Store

	// SuperAdmins lists the lower-cased emails of admins with full powers.
	SuperAdmins []string

	Now func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// IsSuperAdmin reports whether u is an active, unsuspended admin listed as
// super-admin.
func (s *UserService) IsSuperAdmin(u domain.User) bool {
	return u.Role == domain.RoleAdmin && u.CanSignIn() &&
		slices.Contains(s.SuperAdmins, NormalizeEmail(u.Email))
}

type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	Company   string
	Phone     string
	ChamberID string
	Role      domain.Role
}

// Register creates a self-service account. Users and assistants start
// unapproved and must pick an existing chamber.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email := NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.User{}, ErrInvalidName
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAssistant {
		return domain.User{}, ErrInvalidRole
	}
	if err := ValidatePassword(in.Password); err != nil {
		return domain.User{}, err
	}

	chamberID := strings.TrimSpace(in.ChamberID)
	if chamberID == "" {
		return domain.User{}, ErrChamberRequired
	}
	if _, err := s.Store.Chambers().GetChamber(ctx, chamberID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrChamberNotFound
		}
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Company:      strings.TrimSpace(in.Company),
		Phone:        strings.TrimSpace(in.Phone),
		ChamberID:    chamberID,
		Role:         role,
		Active:       true,
		Approved:     !role.NeedsApproval(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user registered",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
		slog.String("chamber_id", u.ChamberID),
	)
	return u, nil
}

// Authenticate checks an email/password pair. Account state is only reported
// once the password is known to be right.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			slogx.FromContext(ctx).Error("stored password hash unreadable",
				slog.String("user_id", u.ID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, ErrInvalidCredentials
	}

	switch {
	case !u.Active:
		return domain.User{}, ErrAccountInactive
	case u.Suspended:
		return domain.User{}, ErrAccountSuspended
	case u.Role.NeedsApproval() && !u.Approved:
		return domain.User{}, ErrAccountPendingApproval
	}
	return u, nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// ListPending returns accounts waiting for approval that actor may act on.
func (s *UserService) ListPending(ctx context.Context, actor Actor) ([]domain.User, error) {
	switch {
	case actor.SuperAdmin:
		return s.Store.Users().ListPendingUsers(ctx, "")
	case actor.Role == domain.RoleAssistant && actor.ChamberID != "":
		users, err := s.Store.Users().ListPendingUsers(ctx, actor.ChamberID)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(users, func(u domain.User) bool {
			return u.Role != domain.RoleUser
		}), nil
	}
	return nil, ErrForbiddenScope
}

// Approve validates a pending account.
func (s *UserService) Approve(ctx context.Context, actor Actor, userID string) error {
	target, err := s.scopedTarget(ctx, actor, userID)
	if err != nil {
		return err
	}
	if err := s.Store.Users().Approve(ctx, target.ID, actor.UserID, s.now()); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user approved",
		slog.String("user_id", target.ID),
		slog.String("approved_by", actor.UserID),
	)
	return nil
}

// Reject deactivates a pending account. The row is kept for audit.
func (s *UserService) Reject(ctx context.Context, actor Actor, userID string) error {
	target, err := s.scopedTarget(ctx, actor, userID)
	if err != nil {
		return err
	}
	if err := s.Store.Users().SetActive(ctx, target.ID, false, s.now()); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user rejected",
		slog.String("user_id", target.ID),
		slog.String("rejected_by", actor.UserID),
	)
	return nil
}

// SetSuspended suspends or reinstates an account. Super-admin only.
func (s *UserService) SetSuspended(ctx context.Context, actor Actor, userID string, suspended bool) error {
	if !actor.SuperAdmin {
		return ErrForbiddenScope
	}
	if actor.UserID == userID && suspended {
		return ErrForbiddenScope
	}
	err := s.Store.Users().SetSuspended(ctx, userID, suspended, actor.UserID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user suspension changed",
		slog.String("user_id", userID),
		slog.Bool("suspended", suspended),
		slog.String("by", actor.UserID),
	)
	return nil
}

// Deactivate annuls an account. Super-admin only.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, userID string) error {
	if !actor.SuperAdmin || actor.UserID == userID {
		return ErrForbiddenScope
	}
	err := s.Store.Users().SetActive(ctx, userID, false, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user deactivated",
		slog.String("user_id", userID),
		slog.String("by", actor.UserID),
	)
	return nil
}

// scopedTarget loads userID and checks actor may approve or reject it.
// Super-admins reach everyone; assistants reach regular users of their own
// chamber.
func (s *UserService) scopedTarget(ctx context.Context, actor Actor, userID string) (domain.User, error) {
	target, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if actor.SuperAdmin {
		return target, nil
	}
	if actor.Role == domain.RoleAssistant &&
		actor.ChamberID != "" &&
		target.ChamberID == actor.ChamberID &&
		target.Role == domain.RoleUser {
		return target, nil
	}
	slogx.FromContext(ctx).Warn("approval outside scope",
		slog.String("actor_id", actor.UserID),
		slog.String("target_id", target.ID),
	)
	return domain.User{}, ErrForbiddenScope
}

// AnyAdminExists reports whether an active admin account exists.
func (s *UserService) AnyAdminExists(ctx context.Context) (bool, error) {
	return s.Store.Users().AnyAdminExists(ctx)
}

type BootstrapAdmin struct {
	Email    string
	Password string
	Name     string
}

// EnsureBootstrapAdmin creates the first admin when none exists yet. It
// reports whether an account was created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, in BootstrapAdmin) (bool, error) {
	log := slogx.FromContext(ctx)

	email := NormalizeEmail(in.Email)
	if email == "" {
		return false, nil
	}

	exists, err := s.AnyAdminExists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := ValidatePassword(in.Password); err != nil {
		return false, err
	}
	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return false, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Super Admin"
	}

	now := s.now()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         domain.RoleAdmin,
		Active:       true,
		Approved:     true,
		ApprovedAt:   &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, ErrEmailTaken
		}
		return false, err
	}

	log.Info("bootstrap admin created", slog.String("user_id", admin.ID))
	return true, nil
}
