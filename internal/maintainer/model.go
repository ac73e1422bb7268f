package maintainer

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrExternalLock indica relato travado por atribuição a empresa externa.
	ErrExternalLock = errors.New("relato sob responsabilidade de empresa externa")
)

// Via identifica a origem do conjunto de categorias de um mantenedor.
type Via string

const (
	// ViaNone indica que nenhum vínculo foi encontrado; o chamador nega acesso.
	ViaNone Via = "NONE"
	// ViaTechnician indica vínculo direto técnico → categorias.
	ViaTechnician Via = "TECHNICIAN"
	// ViaExternalOffice indica vínculo via empresa externa do usuário.
	ViaExternalOffice Via = "EXTERNAL_OFFICE"
)

// Resolution é o resultado explícito da consulta de categorias de um
// mantenedor. O fallback técnico → empresa externa é intencional e
// observável, não um efeito colateral de tratamento de erro.
type Resolution struct {
	Categories map[int16]struct{} `json:"categories"`
	Via        Via                `json:"via"`
	OfficeID   *uuid.UUID         `json:"office_id,omitempty"`
}

// Unresolved devolve resolução vazia.
func Unresolved() Resolution {
	return Resolution{Categories: map[int16]struct{}{}, Via: ViaNone}
}

// Authorized indica se a categoria pertence ao conjunto resolvido.
func (r Resolution) Authorized(categoryID int16) bool {
	_, ok := r.Categories[categoryID]
	return ok
}

// Empty indica resolução sem categorias.
func (r Resolution) Empty() bool {
	return len(r.Categories) == 0
}
