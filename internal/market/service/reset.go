package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/mail"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/idx"
	"github.com/cpf-camaras/market/pkg/slogx"
)

const (
	DefaultResetTTL         = 20 * time.Minute
	DefaultResetMinInterval = 90 * time.Second
)

var (
	ErrRateLimited         = errors.New("reset code requested too recently")
	ErrResetNotFound       = errors.New("no reset code for user")
	ErrResetAlreadyUsed    = errors.New("reset code already used")
	ErrResetBadExpiry      = errors.New("reset code has an unreadable expiry")
	ErrResetExpired        = errors.New("reset code expired")
	ErrResetInvalid        = errors.New("reset code does not match")
	ErrNoEmail             = errors.New("user has no email on file")
	ErrDeliveryUnavailable = errors.New("reset code delivery is not configured")
	ErrDeliveryFailed      = errors.New("reset code delivery failed")
)

// IssuedCode is a freshly created reset code. Code is the only copy of the
// plaintext.
type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
	TTL       time.Duration
}

// ResetResult describes a reset request. The public endpoint must answer the
// same way whatever it holds.
type ResetResult struct {
	Sent        bool
	UserID      string
	EmailMasked string
	TTL         time.Duration
	Reason      domain.ResetOutcome
}

// ResetService issues and verifies one-time password reset codes and runs
// the identity-based reset workflow on top of them.
type ResetService struct {
	Store    store.Store
	Resolver *identity.Resolver
	Notifier mail.Notifier

	TTL         time.Duration
	MinInterval time.Duration

	Now          func() time.Time
	GenerateCode func() (string, error)
}

func (s *ResetService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ResetService) generateCode() (string, error) {
	if s.GenerateCode != nil {
		return s.GenerateCode()
	}
	return cryptox.GenerateResetCode(cryptox.ResetCodeBytes)
}

func (s *ResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultResetTTL
}

// CodeTTL is how long codes issued by RequestReset and IssueForUser stay
// valid.
func (s *ResetService) CodeTTL() time.Duration { return s.ttl() }

func (s *ResetService) minInterval() time.Duration {
	if s.MinInterval > 0 {
		return s.MinInterval
	}
	return DefaultResetMinInterval
}

// CreateResetCode replaces the user's reset code with a new one. It refuses
// with ErrRateLimited, leaving the current code valid, when that code is
// younger than minInterval.
func (s *ResetService) CreateResetCode(ctx context.Context, userID string, ttl, minInterval time.Duration) (IssuedCode, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	var issued IssuedCode
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.ResetTokens().GetResetToken(ctx, userID)
		switch {
		case err == nil:
			if !existing.CreatedAt.IsZero() && now.Sub(existing.CreatedAt) < minInterval {
				return ErrRateLimited
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		code, err := s.generateCode()
		if err != nil {
			return err
		}
		hash, err := cryptox.HashResetCode(code)
		if err != nil {
			return err
		}

		expiresAt := now.Add(ttl)
		if err := tx.ResetTokens().UpsertResetToken(ctx, domain.ResetToken{
			UserID:    userID,
			CodeHash:  hash,
			CreatedAt: now,
			ExpiresAt: domain.FormatTimestamp(expiresAt),
		}); err != nil {
			return err
		}

		issued = IssuedCode{Code: code, ExpiresAt: expiresAt, TTL: ttl}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRateLimited) {
			log.Error("failed to create reset code", slog.String("user_id", userID), slog.Any("error", err))
		}
		return IssuedCode{}, err
	}
	return issued, nil
}

// VerifyResetCode checks code against the user's outstanding reset code
// without consuming it.
func (s *ResetService) VerifyResetCode(ctx context.Context, userID, code string) error {
	tok, err := s.Store.ResetTokens().GetResetToken(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetNotFound
		}
		return err
	}
	return s.checkToken(ctx, tok, code)
}

func (s *ResetService) checkToken(ctx context.Context, tok domain.ResetToken, code string) error {
	if tok.Used() {
		return ErrResetAlreadyUsed
	}
	exp, err := tok.Expiry()
	if err != nil {
		return ErrResetBadExpiry
	}
	if s.now().After(exp) {
		return ErrResetExpired
	}
	if tok.CodeHash == "" {
		return ErrResetNotFound
	}

	if err := cryptox.VerifyResetCode(code, tok.CodeHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			slogx.FromContext(ctx).Error("stored reset code hash unreadable",
				slog.String("user_id", tok.UserID),
				slog.Any("error", err),
			)
		}
		return ErrResetInvalid
	}
	return nil
}

// ConsumeResetCode marks the user's reset code as used.
func (s *ResetService) ConsumeResetCode(ctx context.Context, userID string) error {
	err := s.Store.ResetTokens().MarkResetTokenUsed(ctx, userID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return ErrResetNotFound
	}
	return err
}

// ResetPasswordWithCode sets a new password for userID. The policy is
// checked before the code; the credential update and the consumption of the
// code commit together.
func (s *ResetService) ResetPasswordWithCode(ctx context.Context, userID, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		tok, err := tx.ResetTokens().GetResetToken(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetNotFound
			}
			return err
		}
		if err := s.checkToken(ctx, tok, code); err != nil {
			return err
		}

		hash, err := cryptox.HashPassword(newPassword)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetNotFound
			}
			return err
		}
		return tx.ResetTokens().MarkResetTokenUsed(ctx, userID, now)
	})
}

// RequestReset resolves the claimed identity and emails a reset code to the
// address on file. Outcomes the requester must not learn about are reported
// through Reason with a nil error; delivery problems also return an error
// for the operator.
func (s *ResetService) RequestReset(ctx context.Context, claims identity.Claims) (ResetResult, error) {
	log := slogx.FromContext(ctx)

	match, ok, err := s.resolve(ctx, claims)
	if err != nil {
		return ResetResult{}, err
	}
	if !ok {
		s.record(ctx, domain.OutcomeNoMatch, "", nil)
		return ResetResult{Reason: domain.OutcomeNoMatch}, nil
	}
	score := match.Score

	u, err := s.Store.Users().GetUserByID(ctx, match.UserID)
	if err != nil {
		return ResetResult{}, err
	}
	res := ResetResult{UserID: u.ID, EmailMasked: MaskEmail(u.Email)}

	if !u.CanSignIn() {
		res.Reason = domain.OutcomeInactive
		s.record(ctx, res.Reason, u.ID, &score)
		return res, nil
	}

	if err := s.deliverable(u); err != nil {
		res.Reason = domain.OutcomeNoEmail
		if errors.Is(err, ErrDeliveryUnavailable) {
			res.Reason = domain.OutcomeDeliveryFailed
		}
		s.record(ctx, res.Reason, u.ID, &score)
		log.Error("reset code cannot be delivered", slog.String("user_id", u.ID), slog.Any("error", err))
		return res, err
	}

	issued, err := s.CreateResetCode(ctx, u.ID, s.ttl(), s.minInterval())
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			res.Reason = domain.OutcomeRateLimited
			s.record(ctx, res.Reason, u.ID, &score)
			return res, nil
		}
		return ResetResult{}, err
	}

	if err := s.send(ctx, u, issued); err != nil {
		res.Reason = domain.OutcomeDeliveryFailed
		s.record(ctx, res.Reason, u.ID, &score)
		return res, err
	}

	res.Sent = true
	res.TTL = issued.TTL
	res.Reason = domain.OutcomeSent
	s.record(ctx, res.Reason, u.ID, &score)
	return res, nil
}

// IssueForUser emails a reset code to a known user on an operator's
// request. Every failure is returned as an error.
func (s *ResetService) IssueForUser(ctx context.Context, userID string) (ResetResult, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResetResult{}, ErrUserNotFound
		}
		return ResetResult{}, err
	}
	if !u.Active {
		return ResetResult{}, ErrAccountInactive
	}
	if u.Suspended {
		return ResetResult{}, ErrAccountSuspended
	}
	if err := s.deliverable(u); err != nil {
		return ResetResult{}, err
	}

	issued, err := s.CreateResetCode(ctx, u.ID, s.ttl(), s.minInterval())
	if err != nil {
		return ResetResult{}, err
	}
	if err := s.send(ctx, u, issued); err != nil {
		s.record(ctx, domain.OutcomeDeliveryFailed, u.ID, nil)
		return ResetResult{}, err
	}

	s.record(ctx, domain.OutcomeAdminIssued, u.ID, nil)
	return ResetResult{
		Sent:        true,
		UserID:      u.ID,
		EmailMasked: MaskEmail(u.Email),
		TTL:         issued.TTL,
		Reason:      domain.OutcomeAdminIssued,
	}, nil
}

// VerifyWithClaims re-resolves the identity and checks code against it.
// An identity that no longer resolves reads as ErrResetNotFound.
func (s *ResetService) VerifyWithClaims(ctx context.Context, claims identity.Claims, code string) error {
	match, ok, err := s.resolve(ctx, claims)
	if err != nil {
		return err
	}
	if !ok {
		s.record(ctx, domain.OutcomeVerifyFailed, "", nil)
		return ErrResetNotFound
	}

	if err := s.VerifyResetCode(ctx, match.UserID, code); err != nil {
		s.record(ctx, domain.OutcomeVerifyFailed, match.UserID, &match.Score)
		return err
	}
	s.record(ctx, domain.OutcomeVerified, match.UserID, &match.Score)
	return nil
}

// ResetWithClaims re-resolves the identity and sets a new password with
// code.
func (s *ResetService) ResetWithClaims(ctx context.Context, claims identity.Claims, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	match, ok, err := s.resolve(ctx, claims)
	if err != nil {
		return err
	}
	if !ok {
		s.record(ctx, domain.OutcomeVerifyFailed, "", nil)
		return ErrResetNotFound
	}

	if err := s.ResetPasswordWithCode(ctx, match.UserID, code, newPassword); err != nil {
		s.record(ctx, domain.OutcomeVerifyFailed, match.UserID, &match.Score)
		return err
	}

	slogx.FromContext(ctx).Info("password reset completed", slog.String("user_id", match.UserID))
	s.record(ctx, domain.OutcomeCompleted, match.UserID, &match.Score)
	return nil
}

// ListAttempts returns the newest entries of the reset attempt log.
func (s *ResetService) ListAttempts(ctx context.Context, limit int) ([]domain.ResetAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Store.ResetAttempts().ListResetAttempts(ctx, limit)
}

// resolve loads the candidates the claims could match and runs the
// resolver over them.
func (s *ResetService) resolve(ctx context.Context, claims identity.Claims) (identity.Match, bool, error) {
	var q store.CandidateQuery
	if f, ok := identity.NewPhoneFilter(claims.Phone, s.Resolver.Config().PhoneMinDigits); ok {
		q = store.CandidateQuery{PhoneSuffix: f.Suffix, PhoneExact: f.Exact}
	}

	users, err := s.Store.Users().ListResetCandidates(ctx, q)
	if err != nil {
		return identity.Match{}, false, err
	}

	candidates := make([]identity.Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, identity.Candidate{
			UserID:    u.ID,
			Name:      u.Name,
			Company:   u.Company,
			Phone:     u.Phone,
			ChamberID: u.ChamberID,
			Inactive:  !u.CanSignIn(),
		})
	}

	match, ok := s.Resolver.Resolve(ctx, claims, candidates)
	return match, ok, nil
}

func (s *ResetService) deliverable(u domain.User) error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrNoEmail
	}
	if s.Notifier == nil || !s.Notifier.Configured() {
		return ErrDeliveryUnavailable
	}
	return nil
}

func (s *ResetService) send(ctx context.Context, u domain.User, issued IssuedCode) error {
	err := s.Notifier.SendResetCode(ctx, mail.ResetCodeMessage{
		To:       u.Email,
		Name:     u.Name,
		Code:     issued.Code,
		ValidFor: issued.TTL,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("reset code delivery failed", slog.String("user_id", u.ID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// record appends to the reset attempt log. Failures are logged only.
func (s *ResetService) record(ctx context.Context, outcome domain.ResetOutcome, userID string, score *float64) {
	if score != nil {
		rounded := math.Round(*score*1000) / 1000
		score = &rounded
	}
	now := s.now()
	err := s.Store.ResetAttempts().AppendResetAttempt(ctx, domain.ResetAttempt{
		ID:        idx.NewAt(now).String(),
		UserID:    userID,
		Outcome:   outcome,
		Score:     score,
		CreatedAt: now,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to record reset attempt",
			slog.String("outcome", string(outcome)),
			slog.Any("error", err),
		)
	}
}

// MaskEmail hides the local part of an address except its first and last
// characters: "juanperez@x.com" becomes "j*******z@x.com". Local parts of one
// or two characters keep only the first.
func MaskEmail(email string) string {
	local, dom, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	r := []rune(local)
	switch {
	case len(r) == 0:
		return "*@" + dom
	case len(r) <= 2:
		return string(r[0]) + "*@" + dom
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1]) + "@" + dom
}
