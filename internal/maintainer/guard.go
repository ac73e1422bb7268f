package maintainer

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportSource fornece os dados mínimos de um relato usados na autorização.
type ReportSource interface {
	ReportMeta(ctx context.Context, reportID uuid.UUID) (categoryID int16, externalOfficeID *uuid.UUID, err error)
}

// Guard decide se um mantenedor pode atuar sobre um relato e aplica o
// travamento por atribuição externa.
type Guard struct {
	directory *Directory
	reports   ReportSource
}

// NewGuard cria o guarda de autorização.
func NewGuard(directory *Directory, reports ReportSource) *Guard {
	return &Guard{directory: directory, reports: reports}
}

// CanActOnReport devolve true sse a categoria do relato pertence ao
// conjunto resolvido do mantenedor. Qualquer falha de consulta (usuário ou
// relato desconhecido) devolve false: negação e inexistência precisam ser
// indistinguíveis para quem não está autorizado.
func (g *Guard) CanActOnReport(ctx context.Context, userID, reportID uuid.UUID) bool {
	resolution, err := g.directory.Resolve(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("resolução de mantenedor falhou")
		return false
	}
	if resolution.Empty() {
		return false
	}

	categoryID, _, err := g.reports.ReportMeta(ctx, reportID)
	if err != nil {
		return false
	}

	return resolution.Authorized(categoryID)
}

// CheckExternalLock falha com ErrExternalLock quando o relato está
// atribuído a uma empresa externa. A própria empresa atribuída é isenta do
// seu travamento; técnicos locais não são.
func (g *Guard) CheckExternalLock(ctx context.Context, reportID, actorID uuid.UUID) error {
	_, officeID, err := g.reports.ReportMeta(ctx, reportID)
	if err != nil {
		return err
	}
	if officeID == nil {
		return nil
	}

	resolution, err := g.directory.Resolve(ctx, actorID)
	if err != nil {
		return err
	}
	if resolution.Via == ViaExternalOffice && resolution.OfficeID != nil && *resolution.OfficeID == *officeID {
		return nil
	}

	return ErrExternalLock
}
