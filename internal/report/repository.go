package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaozabele/ouvidoria/internal/db"
)

const reportColumns = `
        r.id, r.title, r.description, r.category_id, c.name,
        r.latitude, r.longitude, r.address, r.anonymous,
        r.owner_id, u.display_name, r.status, r.external_office_id,
        (SELECT COALESCE(array_remove(array_agg(p.url ORDER BY p.created_at), NULL), '{}')
           FROM report_photos p WHERE p.report_id = r.id),
        r.created_at, r.updated_at`

const reportFrom = `
        FROM reports r
        JOIN categories c ON c.id = r.category_id
        JOIN users u ON u.id = r.owner_id`

// Repository provê acesso às tabelas de relatos.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create insere um novo relato. O status inicial é sempre PENDING_APPROVAL,
// independente do que o chamador informe.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Report, error) {
	const query = `
        INSERT INTO reports (title, description, category_id, latitude, longitude, address, anonymous, owner_id, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(input.Title),
		strings.TrimSpace(input.Description),
		input.CategoryID,
		input.Latitude,
		input.Longitude,
		strings.TrimSpace(input.Address),
		input.Anonymous,
		input.OwnerID,
		string(StatusPendingApproval),
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// GetByID busca um relato com categoria, autor e fotos.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	query := "SELECT" + reportColumns + reportFrom + " WHERE r.id = $1"
	row := r.pool.QueryRow(ctx, query, id)
	return scanReport(row)
}

// List lista relatos aplicando o filtro informado.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Report, error) {
	base := "SELECT" + reportColumns + reportFrom

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.OwnerID != nil {
		clauses = append(clauses, fmt.Sprintf("r.owner_id = $%d", idx))
		args = append(args, *filter.OwnerID)
		idx++
	}

	if filter.CategoryID != nil {
		clauses = append(clauses, fmt.Sprintf("r.category_id = $%d", idx))
		args = append(args, *filter.CategoryID)
		idx++
	}

	if len(filter.Status) > 0 {
		values := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			values[i] = string(status)
		}
		clauses = append(clauses, fmt.Sprintf("r.status = ANY($%d)", idx))
		args = append(args, values)
		idx++
	}

	if filter.ActiveOnly {
		clauses = append(clauses, fmt.Sprintf("r.status NOT IN ($%d, $%d)", idx, idx+1))
		args = append(args, string(StatusRejected), string(StatusResolved))
		idx += 2
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query += fmt.Sprintf(" ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return reports, nil
}

// SetStatus grava o novo status exigindo que o status atual ainda seja o
// esperado. Escritas concorrentes sobre o mesmo relato não podem vencer
// silenciosamente: a segunda falha com ErrStaleWrite e precisa reavaliar.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Report, error) {
	const query = `
        UPDATE reports
        SET status = $1,
            external_office_id = CASE WHEN $1 IN ('REJECTED', 'RESOLVED') THEN NULL ELSE external_office_id END,
            updated_at = now()
        WHERE id = $2 AND status = $3
    `

	tag, err := r.pool.Exec(ctx, query, string(to), id, string(from))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStaleWrite
	}

	return r.GetByID(ctx, id)
}

// SetExternalOffice grava ou limpa o vínculo com empresa externa.
func (r *Repository) SetExternalOffice(ctx context.Context, id uuid.UUID, officeID *uuid.UUID) (*Report, error) {
	const query = `
        UPDATE reports
        SET external_office_id = $1, updated_at = now()
        WHERE id = $2
    `

	tag, err := r.pool.Exec(ctx, query, officeID, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// Reject grava o registro de recusa e o status REJECTED como uma única
// unidade lógica: se o registro de recusa falhar, o status não é alterado.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID, from Status, officerID uuid.UUID, motivation string) (*Report, error) {
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const insert = `
            INSERT INTO report_rejections (report_id, officer_id, motivation)
            VALUES ($1, $2, $3)
        `
		if _, err := tx.Exec(ctx, insert, id, officerID, strings.TrimSpace(motivation)); err != nil {
			return err
		}

		const update = `
            UPDATE reports
            SET status = $1, external_office_id = NULL, updated_at = now()
            WHERE id = $2 AND status = $3
        `
		tag, err := tx.Exec(ctx, update, string(StatusRejected), id, string(from))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleWrite
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			if _, gerr := r.GetByID(ctx, id); gerr != nil {
				return nil, gerr
			}
		}
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// GetRejection busca o registro de recusa do relato.
func (r *Repository) GetRejection(ctx context.Context, reportID uuid.UUID) (*Rejection, error) {
	const query = `
        SELECT id, report_id, officer_id, motivation, created_at
        FROM report_rejections
        WHERE report_id = $1
    `

	var rej Rejection
	err := r.pool.QueryRow(ctx, query, reportID).
		Scan(&rej.ID, &rej.ReportID, &rej.OfficerID, &rej.Motivation, &rej.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rej, nil
}

// AddComment insere mensagem associada ao relato.
func (r *Repository) AddComment(ctx context.Context, reportID, authorID uuid.UUID, body string) (*Comment, error) {
	const query = `
        INSERT INTO report_comments (report_id, author_id, body)
        VALUES ($1, $2, $3)
        RETURNING id, report_id, author_id, body, created_at
    `

	var c Comment
	err := r.pool.QueryRow(ctx, query, reportID, authorID, strings.TrimSpace(body)).
		Scan(&c.ID, &c.ReportID, &c.AuthorID, &c.Body, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments lista mensagens do relato em ordem cronológica.
func (r *Repository) ListComments(ctx context.Context, reportID uuid.UUID) ([]Comment, error) {
	const query = `
        SELECT id, report_id, author_id, body, created_at
        FROM report_comments
        WHERE report_id = $1
        ORDER BY created_at ASC
    `

	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return comments, nil
}

// AddPhoto associa uma foto ao relato respeitando o limite por relato. A
// linha do relato é travada na transação: uploads concorrentes contam as
// fotos um de cada vez e não ultrapassam o limite.
func (r *Repository) AddPhoto(ctx context.Context, reportID uuid.UUID, url string) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const lock = `SELECT 1 FROM reports WHERE id = $1 FOR UPDATE`
		var one int
		if err := tx.QueryRow(ctx, lock, reportID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const count = `SELECT count(*) FROM report_photos WHERE report_id = $1`
		var total int
		if err := tx.QueryRow(ctx, count, reportID).Scan(&total); err != nil {
			return err
		}
		if total >= MaxPhotos {
			return ErrPhotoLimit
		}

		const insert = `INSERT INTO report_photos (report_id, url) VALUES ($1, $2)`
		_, err := tx.Exec(ctx, insert, reportID, url)
		return err
	})
}

// ReportMeta devolve categoria e vínculo externo do relato, na forma que o
// guarda de autorização consome.
func (r *Repository) ReportMeta(ctx context.Context, reportID uuid.UUID) (int16, *uuid.UUID, error) {
	const query = `SELECT category_id, external_office_id FROM reports WHERE id = $1`

	var (
		categoryID int16
		officeID   *uuid.UUID
	)
	if err := r.pool.QueryRow(ctx, query, reportID).Scan(&categoryID, &officeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, err
	}
	return categoryID, officeID, nil
}

// OfficeExists verifica se a empresa externa está cadastrada.
func (r *Repository) OfficeExists(ctx context.Context, officeID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM external_offices WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, officeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(
		&rep.ID, &rep.Title, &rep.Description, &rep.CategoryID, &rep.CategoryName,
		&rep.Latitude, &rep.Longitude, &rep.Address, &rep.Anonymous,
		&rep.OwnerID, &rep.OwnerName, &rep.Status, &rep.ExternalOfficeID,
		&rep.Photos, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}
