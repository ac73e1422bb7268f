package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de notificações.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create insere uma notificação não lida.
func (r *Repository) Create(ctx context.Context, recipientID, reportID uuid.UUID, typ Type, message string) (*Notification, error) {
	const query = `
        INSERT INTO notifications (recipient_id, report_id, type, message)
        VALUES ($1, $2, $3, $4)
        RETURNING id, recipient_id, report_id, type, message, is_read, created_at
    `

	row := r.pool.QueryRow(ctx, query, recipientID, reportID, string(typ), message)
	return scanNotification(row)
}

// MarkRead marca a notificação como lida. A operação é idempotente: marcar
// uma notificação já lida a deixa lida, sem erro.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	const query = `
        UPDATE notifications
        SET is_read = true
        WHERE id = $1
        RETURNING id, recipient_id, report_id, type, message, is_read, created_at
    `

	row := r.pool.QueryRow(ctx, query, id)
	return scanNotification(row)
}

// MarkReadFor marca como lida restringindo ao destinatário: marcar a
// notificação de outro usuário responde como inexistente.
func (r *Repository) MarkReadFor(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	const query = `
        UPDATE notifications
        SET is_read = true
        WHERE id = $1 AND recipient_id = $2
        RETURNING id, recipient_id, report_id, type, message, is_read, created_at
    `

	row := r.pool.QueryRow(ctx, query, id, recipientID)
	return scanNotification(row)
}

// ListUnread lista notificações não lidas do destinatário, mais recentes
// primeiro.
func (r *Repository) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	const query = `
        SELECT id, recipient_id, report_id, type, message, is_read, created_at
        FROM notifications
        WHERE recipient_id = $1 AND is_read = false
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, recipientID)
}

// ListByRecipient lista todas as notificações do destinatário.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	const query = `
        SELECT id, recipient_id, report_id, type, message, is_read, created_at
        FROM notifications
        WHERE recipient_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, recipientID)
}

func (r *Repository) list(ctx context.Context, query string, recipientID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return notifications, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.RecipientID, &n.ReportID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
