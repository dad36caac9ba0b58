package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/identity"
	"github.com/cpf-camaras/market/internal/market/mail"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/cpf-camaras/market/internal/market/store/drivers/sqlite"
	"github.com/cpf-camaras/market/pkg/cryptox"
	"github.com/cpf-camaras/market/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-pepper-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

const testPassword = "Secreta123"

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedChamber(t *testing.T, s store.Store, name string) domain.Chamber {
	t.Helper()
	c := domain.Chamber{ID: idx.New().String(), Name: name, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.Chambers().CreateChamber(context.Background(), c))
	return c
}

type userOpt func(*domain.User)

func withRole(r domain.Role) userOpt { return func(u *domain.User) { u.Role = r } }
func withChamber(id string) userOpt  { return func(u *domain.User) { u.ChamberID = id } }
func withPhone(p string) userOpt     { return func(u *domain.User) { u.Phone = p } }

func withIdentity(name, company string) userOpt {
	return func(u *domain.User) { u.Name, u.Company = name, company }
}

func pending() userOpt   { return func(u *domain.User) { u.Approved = false } }
func suspended() userOpt { return func(u *domain.User) { u.Suspended = true } }
func annulled() userOpt  { return func(u *domain.User) { u.Active = false } }

func seedUser(t *testing.T, s store.Store, email string, opts ...userOpt) domain.User {
	t.Helper()
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Juan Pérez",
		Company:      "Metalúrgica del Sur SA",
		Phone:        "+54 341 555-1234",
		Role:         domain.RoleUser,
		Active:       true,
		Approved:     true,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	for _, o := range opts {
		o(&u)
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func newResetService(t *testing.T, s store.Store, clk *testClock, n mail.Notifier) *ResetService {
	t.Helper()
	return &ResetService{
		Store:       s,
		Resolver:    identity.NewResolver(identity.DefaultConfig()),
		Notifier:    n,
		TTL:         20 * time.Minute,
		MinInterval: 90 * time.Second,
		Now:         clk.Now,
	}
}
