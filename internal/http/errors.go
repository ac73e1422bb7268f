package http

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/ouvidoria/internal/maintainer"
	"github.com/gestaozabele/ouvidoria/internal/notification"
	"github.com/gestaozabele/ouvidoria/internal/report"
)

// WriteDomainError converte erros do núcleo em códigos estáveis de resposta.
// Negação de autorização e inexistência respondem de forma idêntica, para
// não vazar a existência de relatos a quem não pode vê-los. Erros
// inesperados de armazenamento são logados com a mensagem do driver, mas
// nunca ecoados ao chamador.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, report.ErrNotFound),
		errors.Is(err, report.ErrForbidden),
		errors.Is(err, notification.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "recurso não encontrado", nil)

	case errors.Is(err, maintainer.ErrExternalLock):
		WriteError(w, http.StatusConflict, "EXTERNAL_LOCK", "relato sob responsabilidade de empresa externa", nil)

	case errors.Is(err, report.ErrInvalidTransition),
		errors.Is(err, report.ErrStaleWrite):
		WriteError(w, http.StatusConflict, "NOT_ALLOWED", "transição de status não permitida", nil)

	case errors.Is(err, report.ErrInvalidStatus),
		errors.Is(err, notification.ErrInvalidType):
		WriteError(w, http.StatusUnprocessableEntity, "VALIDATION", "valor fora do vocabulário aceito", nil)

	case errors.Is(err, report.ErrValidation):
		WriteError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)

	case errors.Is(err, report.ErrMotivationLength):
		WriteError(w, http.StatusUnprocessableEntity, "VALIDATION", "motivação de recusa muito curta", nil)

	case errors.Is(err, report.ErrOfficeNotFound):
		WriteError(w, http.StatusUnprocessableEntity, "VALIDATION", "empresa externa não cadastrada", nil)

	case errors.Is(err, report.ErrPhotoLimit):
		WriteError(w, http.StatusUnprocessableEntity, "VALIDATION", "limite de fotos atingido", nil)

	default:
		log.Error().Err(err).Msg("erro de armazenamento no núcleo")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
