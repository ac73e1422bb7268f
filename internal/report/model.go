package report

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("relato não encontrado")
	ErrValidation        = errors.New("validação falhou")
	ErrInvalidStatus     = errors.New("status inválido")
	ErrInvalidTransition = errors.New("transição de status não permitida")
	ErrForbidden         = errors.New("acesso negado")
	ErrStaleWrite        = errors.New("status alterado por outra operação")
	ErrMotivationLength  = errors.New("motivação de recusa muito curta")
	ErrOfficeNotFound    = errors.New("empresa externa não encontrada")
	ErrPhotoLimit        = errors.New("limite de fotos atingido")
)

// Status é o conjunto fechado de estados do ciclo de vida de um relato.
// Os valores são os mesmos usados no nível de transporte.
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusAssigned        Status = "ASSIGNED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusSuspended       Status = "SUSPENDED"
	StatusRejected        Status = "REJECTED"
	StatusResolved        Status = "RESOLVED"
)

// MinMotivationLen é o tamanho mínimo da motivação de recusa.
const MinMotivationLen = 15

// MaxPhotos limita fotos associadas a um relato.
const MaxPhotos = 3

// ParseStatus valida a representação textual de um status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPendingApproval, StatusAssigned, StatusInProgress,
		StatusSuspended, StatusRejected, StatusResolved:
		return s, nil
	}
	return "", ErrInvalidStatus
}

// Terminal indica se o status encerra o ciclo de vida.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusResolved:
		return true
	case StatusPendingApproval, StatusAssigned, StatusInProgress, StatusSuspended:
		return false
	}
	return false
}

// ExternalAssignable indica se o status admite vínculo com empresa externa.
func (s Status) ExternalAssignable() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusSuspended:
		return true
	case StatusPendingApproval, StatusRejected, StatusResolved:
		return false
	}
	return false
}

// CanTransition aplica a tabela de transições do ciclo de vida.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPendingApproval:
		return to == StatusAssigned || to == StatusRejected
	case StatusAssigned, StatusInProgress, StatusSuspended:
		switch to {
		case StatusInProgress, StatusSuspended, StatusResolved, StatusRejected:
			return to != from
		}
		return false
	case StatusRejected, StatusResolved:
		return false
	}
	return false
}

// Papéis de ator reconhecidos pelo ciclo de vida.
const (
	RoleCitizen    = "CITIZEN"
	RoleOfficer    = "OFFICER"
	RoleTechnician = "TECHNICIAN"
	RoleExternal   = "EXTERNAL"
)

// Report representa um relato de problema urbano aberto por um cidadão.
type Report struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	CategoryID       int16      `json:"category_id"`
	CategoryName     string     `json:"category_name,omitempty"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Address          string     `json:"address"`
	Anonymous        bool       `json:"anonymous"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	OwnerName        string     `json:"owner_name,omitempty"`
	Status           Status     `json:"status"`
	ExternalOfficeID *uuid.UUID `json:"external_office_id,omitempty"`
	Photos           []string   `json:"photos"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Rejection registra a recusa de um relato, 1:1 com o relato recusado.
type Rejection struct {
	ID         uuid.UUID `json:"id"`
	ReportID   uuid.UUID `json:"report_id"`
	OfficerID  uuid.UUID `json:"officer_id"`
	Motivation string    `json:"motivation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment representa uma mensagem associada a um relato.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"report_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput encapsula os campos de abertura de um relato.
type CreateInput struct {
	Title       string
	Description string
	CategoryID  int16
	Latitude    float64
	Longitude   float64
	Address     string
	Anonymous   bool
	OwnerID     uuid.UUID
}

// Filter restringe listagens de relatos.
type Filter struct {
	OwnerID    *uuid.UUID
	CategoryID *int16
	Status     []Status
	ActiveOnly bool
	Limit      int
	Offset     int
}

// AnonymousDisplayName substitui o nome do autor em relatos anônimos
// quando o consulente é um cidadão comum.
const AnonymousDisplayName = "Anonymous"

// RedactOwner oculta o autor de relatos anônimos para consulentes cidadãos.
// O próprio autor nunca é ocultado de si mesmo.
func RedactOwner(reports []Report, viewerRole string, viewerID uuid.UUID) []Report {
	if viewerRole != RoleCitizen && viewerRole != "" {
		return reports
	}
	for i := range reports {
		if reports[i].Anonymous && reports[i].OwnerID != viewerID {
			reports[i].OwnerName = AnonymousDisplayName
		}
	}
	return reports
}
