package sqlstore

import (
	"context"
	"strings"

	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/internal/market/store"
	"github.com/jmoiron/sqlx"
)

type chambersRepo struct {
	q sqlx.ExtContext
	d Dialect
}

type chamberRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	City      string `db:"city"`
	Province  string `db:"province"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

const chamberColumns = `id, name, city, province, created_at, updated_at`

func (r chamberRow) toDomain() domain.Chamber {
	return domain.Chamber{
		ID:        r.ID,
		Name:      r.Name,
		City:      r.City,
		Province:  r.Province,
		CreatedAt: parseTS(r.CreatedAt),
		UpdatedAt: parseTS(r.UpdatedAt),
	}
}

// nameKey is the case-insensitive uniqueness key of a chamber name.
func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func (r *chambersRepo) CreateChamber(ctx context.Context, c domain.Chamber) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`
INSERT INTO chambers (id, name, name_key, city, province, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, nameKey(c.Name), c.City, c.Province, ts(c.CreatedAt), ts(c.UpdatedAt))
	if err != nil && r.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *chambersRepo) GetChamber(ctx context.Context, id string) (domain.Chamber, error) {
	var row chamberRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+chamberColumns+` FROM chambers WHERE id = ?`), id)
	if err != nil {
		return domain.Chamber{}, mapNotFound(err)
	}
	return row.toDomain(), nil
}

func (r *chambersRepo) ListChambers(ctx context.Context) ([]domain.Chamber, error) {
	var rows []chamberRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT `+chamberColumns+` FROM chambers ORDER BY name_key`); err != nil {
		return nil, err
	}
	out := make([]domain.Chamber, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *chambersRepo) UpdateChamber(ctx context.Context, c domain.Chamber) error {
	err := mapExec(r.q.ExecContext(ctx, r.q.Rebind(`
UPDATE chambers SET name = ?, name_key = ?, city = ?, province = ?, updated_at = ?
WHERE id = ?`),
		c.Name, nameKey(c.Name), c.City, c.Province, ts(c.UpdatedAt), c.ID))
	if err != nil && r.d.IsUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
