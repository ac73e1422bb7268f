package maintainer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso às tabelas de vínculo de mantenedores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TechnicianCategories lista categorias atribuídas diretamente ao técnico.
func (r *Repository) TechnicianCategories(ctx context.Context, userID uuid.UUID) ([]int16, error) {
	const query = `
        SELECT category_id
        FROM technician_categories
        WHERE user_id = $1
        ORDER BY category_id
    `
	return r.listCategories(ctx, query, userID)
}

// OfficeForUser devolve a empresa externa do usuário, se houver.
func (r *Repository) OfficeForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	const query = `
        SELECT company_id
        FROM user_companies
        WHERE user_id = $1
    `

	var officeID uuid.UUID
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&officeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &officeID, nil
}

// OfficeCategories lista categorias atribuídas à empresa externa.
func (r *Repository) OfficeCategories(ctx context.Context, officeID uuid.UUID) ([]int16, error) {
	const query = `
        SELECT category_id
        FROM company_categories
        WHERE company_id = $1
        ORDER BY category_id
    `
	return r.listCategories(ctx, query, officeID)
}

func (r *Repository) listCategories(ctx context.Context, query string, key uuid.UUID) ([]int16, error) {
	rows, err := r.pool.Query(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []int16
	for rows.Next() {
		var id int16
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		categories = append(categories, id)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return categories, nil
}
