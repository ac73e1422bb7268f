package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("notificação não encontrada")
	ErrInvalidType = errors.New("tipo de notificação inválido")
)

// Type é o vocabulário fechado de tipos de notificação.
type Type string

const (
	TypeStatusUpdate Type = "STATUS_UPDATE"
	TypeNewMessage   Type = "NEW_MESSAGE"
)

// Valid indica se o tipo pertence ao vocabulário.
func (t Type) Valid() bool {
	switch t {
	case TypeStatusUpdate, TypeNewMessage:
		return true
	}
	return false
}

// Notification é o registro durável de um evento do ciclo de vida
// endereçado ao autor do relato.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	ReportID    uuid.UUID `json:"report_id"`
	Type        Type      `json:"type"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
