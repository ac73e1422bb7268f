package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/ouvidoria/internal/notification"
)

// Actor é a identidade autenticada recebida da camada HTTP. O controlador
// nunca deriva identidade por conta própria.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Store é a camada de persistência consumida pelo controlador.
type Store interface {
	Create(ctx context.Context, input CreateInput) (*Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, filter Filter) ([]Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Report, error)
	SetExternalOffice(ctx context.Context, id uuid.UUID, officeID *uuid.UUID) (*Report, error)
	Reject(ctx context.Context, id uuid.UUID, from Status, officerID uuid.UUID, motivation string) (*Report, error)
	GetRejection(ctx context.Context, reportID uuid.UUID) (*Rejection, error)
	AddComment(ctx context.Context, reportID, authorID uuid.UUID, body string) (*Comment, error)
	ListComments(ctx context.Context, reportID uuid.UUID) ([]Comment, error)
	AddPhoto(ctx context.Context, reportID uuid.UUID, url string) error
	OfficeExists(ctx context.Context, officeID uuid.UUID) (bool, error)
}

// Authorizer decide se um mantenedor pode atuar sobre um relato.
type Authorizer interface {
	CanActOnReport(ctx context.Context, userID, reportID uuid.UUID) bool
	CheckExternalLock(ctx context.Context, reportID, actorID uuid.UUID) error
}

// Notifier despacha notificações duráveis ao autor do relato.
type Notifier interface {
	Dispatch(ctx context.Context, recipientID, reportID uuid.UUID, typ notification.Type, message string) (*notification.Notification, error)
}

// Events publica eventos do ciclo de vida para colaboradores externos.
// Publicação é melhor-esforço e nunca falha a operação que a disparou.
type Events interface {
	ReportCreated(rep *Report)
	ReportUpdated(rep *Report)
}

// Lifecycle é a máquina de estados dos relatos: valida e aplica transições,
// aprovações, recusas e atribuições externas, e dispara as notificações.
type Lifecycle struct {
	store    Store
	guard    Authorizer
	notifier Notifier
	events   Events
}

// NewLifecycle cria o controlador. events pode ser nil.
func NewLifecycle(store Store, guard Authorizer, notifier Notifier, events Events) *Lifecycle {
	return &Lifecycle{store: store, guard: guard, notifier: notifier, events: events}
}

// Create abre um novo relato em PENDING_APPROVAL.
func (l *Lifecycle) Create(ctx context.Context, input CreateInput) (*Report, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Address = strings.TrimSpace(input.Address)

	if input.Title == "" {
		return nil, fmt.Errorf("%w: título obrigatório", ErrValidation)
	}
	if input.Description == "" {
		return nil, fmt.Errorf("%w: descrição obrigatória", ErrValidation)
	}
	if input.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: categoria obrigatória", ErrValidation)
	}
	if input.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("%w: autor obrigatório", ErrValidation)
	}

	rep, err := l.store.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	l.publishCreated(rep)
	return rep, nil
}

// Get recupera um relato, com autor ocultado para consulentes cidadãos
// quando o relato é anônimo.
func (l *Lifecycle) Get(ctx context.Context, viewer Actor, id uuid.UUID) (*Report, error) {
	rep, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if rep.Anonymous && viewer.Role == RoleCitizen && viewer.ID != rep.OwnerID {
		rep.OwnerName = AnonymousDisplayName
	}
	return rep, nil
}

// List lista relatos aplicando o filtro e a ocultação de autores anônimos.
func (l *Lifecycle) List(ctx context.Context, viewer Actor, filter Filter) ([]Report, error) {
	reports, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return RedactOwner(reports, viewer.Role, viewer.ID), nil
}

// Approve move o relato de PENDING_APPROVAL para ASSIGNED. Ação do fiscal
// revisor.
func (l *Lifecycle) Approve(ctx context.Context, officer Actor, reportID uuid.UUID) (*Report, error) {
	if officer.Role != RoleOfficer {
		return nil, ErrForbidden
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rep.Status, StatusAssigned) {
		return nil, ErrInvalidTransition
	}

	updated, err := l.store.SetStatus(ctx, reportID, rep.Status, StatusAssigned)
	if err != nil {
		return nil, err
	}

	if err := l.notifyStatus(ctx, updated); err != nil {
		return nil, err
	}
	l.publishUpdated(updated)
	return updated, nil
}

// Reject recusa o relato com motivação obrigatória. O registro de recusa e
// o status REJECTED são gravados como uma única unidade lógica.
func (l *Lifecycle) Reject(ctx context.Context, officer Actor, reportID uuid.UUID, motivation string) (*Report, error) {
	if officer.Role != RoleOfficer {
		return nil, ErrForbidden
	}
	if len(strings.TrimSpace(motivation)) < MinMotivationLen {
		return nil, ErrMotivationLength
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rep.Status, StatusRejected) {
		return nil, ErrInvalidTransition
	}

	updated, err := l.store.Reject(ctx, reportID, rep.Status, officer.ID, motivation)
	if err != nil {
		return nil, err
	}

	if err := l.notifyStatus(ctx, updated); err != nil {
		return nil, err
	}
	l.publishUpdated(updated)
	return updated, nil
}

// GetRejection devolve a motivação de recusa do relato.
func (l *Lifecycle) GetRejection(ctx context.Context, reportID uuid.UUID) (*Rejection, error) {
	if _, err := l.store.GetByID(ctx, reportID); err != nil {
		return nil, err
	}
	return l.store.GetRejection(ctx, reportID)
}

// SetStatus aplica uma transição de mantenedor (IN_PROGRESS, SUSPENDED ou
// RESOLVED). Exige autorização por categoria e respeita o travamento por
// atribuição externa.
func (l *Lifecycle) SetStatus(ctx context.Context, actor Actor, reportID uuid.UUID, to Status) (*Report, error) {
	switch to {
	case StatusInProgress, StatusSuspended, StatusResolved:
	case StatusPendingApproval, StatusAssigned, StatusRejected:
		return nil, ErrInvalidTransition
	default:
		return nil, ErrInvalidStatus
	}

	if !l.guard.CanActOnReport(ctx, actor.ID, reportID) {
		return nil, ErrForbidden
	}
	if err := l.guard.CheckExternalLock(ctx, reportID, actor.ID); err != nil {
		return nil, err
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rep.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := l.store.SetStatus(ctx, reportID, rep.Status, to)
	if err != nil {
		return nil, err
	}

	if err := l.notifyStatus(ctx, updated); err != nil {
		return nil, err
	}
	l.publishUpdated(updated)
	return updated, nil
}

// AssignExternal vincula o relato a uma empresa externa. Apenas técnicos
// podem atribuir, e somente em estados que admitem o vínculo.
func (l *Lifecycle) AssignExternal(ctx context.Context, actor Actor, reportID, officeID uuid.UUID) (*Report, error) {
	if actor.Role != RoleTechnician {
		return nil, ErrForbidden
	}
	if !l.guard.CanActOnReport(ctx, actor.ID, reportID) {
		return nil, ErrForbidden
	}

	exists, err := l.store.OfficeExists(ctx, officeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOfficeNotFound
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !rep.Status.ExternalAssignable() {
		return nil, ErrInvalidTransition
	}

	updated, err := l.store.SetExternalOffice(ctx, reportID, &officeID)
	if err != nil {
		return nil, err
	}

	l.publishUpdated(updated)
	return updated, nil
}

// UnassignExternal desfaz o vínculo com a empresa externa.
func (l *Lifecycle) UnassignExternal(ctx context.Context, actor Actor, reportID uuid.UUID) (*Report, error) {
	if actor.Role != RoleTechnician {
		return nil, ErrForbidden
	}
	if !l.guard.CanActOnReport(ctx, actor.ID, reportID) {
		return nil, ErrForbidden
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	updated, err := l.store.SetExternalOffice(ctx, reportID, nil)
	if err != nil {
		return nil, err
	}

	l.publishUpdated(updated)
	return updated, nil
}

// AddComment registra mensagem no relato e notifica o autor quando a
// mensagem vem de terceiros.
func (l *Lifecycle) AddComment(ctx context.Context, author Actor, reportID uuid.UUID, body string) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: mensagem obrigatória", ErrValidation)
	}

	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	comment, err := l.store.AddComment(ctx, reportID, author.ID, body)
	if err != nil {
		return nil, err
	}

	if author.ID != rep.OwnerID {
		message := fmt.Sprintf("New message on your report #%s", rep.ID)
		if _, err := l.notifier.Dispatch(ctx, rep.OwnerID, rep.ID, notification.TypeNewMessage, message); err != nil {
			log.Error().Err(err).
				Str("report_id", rep.ID.String()).
				Msg("notificação de mensagem não persistida")
			return nil, err
		}
	}

	return comment, nil
}

// ListComments lista mensagens do relato.
func (l *Lifecycle) ListComments(ctx context.Context, reportID uuid.UUID) ([]Comment, error) {
	if _, err := l.store.GetByID(ctx, reportID); err != nil {
		return nil, err
	}
	return l.store.ListComments(ctx, reportID)
}

// AttachPhoto associa uma foto já armazenada ao relato do próprio autor.
func (l *Lifecycle) AttachPhoto(ctx context.Context, actor Actor, reportID uuid.UUID, url string) error {
	rep, err := l.store.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if rep.OwnerID != actor.ID {
		return ErrForbidden
	}
	return l.store.AddPhoto(ctx, reportID, url)
}

// notifyStatus persiste a notificação de mudança de status. A mudança de
// status já está durável neste ponto; se a persistência da notificação
// falhar, a chamada inteira falha mesmo assim e o log registra a janela
// de inconsistência.
func (l *Lifecycle) notifyStatus(ctx context.Context, rep *Report) error {
	message := fmt.Sprintf("Your report #%s status has been updated to: %s", rep.ID, rep.Status)
	if _, err := l.notifier.Dispatch(ctx, rep.OwnerID, rep.ID, notification.TypeStatusUpdate, message); err != nil {
		log.Error().Err(err).
			Str("report_id", rep.ID.String()).
			Str("status", string(rep.Status)).
			Msg("status gravado mas notificação não persistida")
		return err
	}
	return nil
}

func (l *Lifecycle) publishCreated(rep *Report) {
	if l.events != nil {
		l.events.ReportCreated(rep)
	}
}

func (l *Lifecycle) publishUpdated(rep *Report) {
	if l.events != nil {
		l.events.ReportUpdated(rep)
	}
}
