package repository

import (
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
)

const clientColumns = `id, name, contact_name, email, phone, industry, is_active, created_at, version`

func scanClient(row interface{ Scan(...any) error }) (*domain.Client, error) {
	c := &domain.Client{}
	dst := []any{&c.ID, &c.Name, &c.ContactName, &c.Email, &c.Phone, &c.Industry, &c.IsActive, &c.CreatedAt, &c.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) CreateClient(c *domain.Client) error {
	query := `
		INSERT INTO clients (name, contact_name, email, phone, industry)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{c.Name, c.ContactName, c.Email, c.Phone, c.Industry}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.IsActive, &c.CreatedAt, &c.Version)
}

func (r *Repository) GetClientByID(id int64) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanClient(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetAllClients() ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY name`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *Repository) UpdateClient(c *domain.Client) error {
	query := `
		UPDATE clients
		SET
			name = $1,
			contact_name = $2,
			email = $3,
			phone = $4,
			industry = $5,
			is_active = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{c.Name, c.ContactName, c.Email, c.Phone, c.Industry, c.IsActive, c.ID, c.Version}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&c.CreatedAt, &c.Version)
}

func (r *Repository) DeleteClient(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	return err
}
