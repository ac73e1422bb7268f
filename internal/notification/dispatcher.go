package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store é a camada durável consumida pelo despachante.
type Store interface {
	Create(ctx context.Context, recipientID, reportID uuid.UUID, typ Type, message string) (*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error)
	MarkReadFor(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error)
	ListUnread(ctx context.Context, recipientID uuid.UUID) ([]Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]Notification, error)
}

// Registry é a visão de leitura do registro de conexões vivas, mantido
// pela camada de canais.
type Registry interface {
	Lookup(userID uuid.UUID) (channelID string, ok bool)
}

// Pusher entrega o payload em um canal aberto. A entrega é melhor-esforço
// por contrato: a assinatura não devolve erro, então nenhuma falha de push
// pode contaminar a operação que disparou a notificação.
type Pusher interface {
	Push(channelID string, n Notification)
}

// Dispatcher persiste notificações e tenta entrega viva quando o
// destinatário tem canal aberto.
type Dispatcher struct {
	store    Store
	registry Registry
	pusher   Pusher
}

// NewDispatcher cria o despachante. Registry e pusher são opcionais; sem
// eles toda entrega é apenas persistida.
func NewDispatcher(store Store, registry Registry, pusher Pusher) *Dispatcher {
	return &Dispatcher{store: store, registry: registry, pusher: pusher}
}

// Dispatch grava a notificação (obrigatório: se a persistência falhar, a
// operação que disparou é considerada falha) e depois tenta o push vivo.
// Sem canal aberto não há tentativa de push: a linha persistida é a única
// entrega até o destinatário reconectar ou consultar.
func (d *Dispatcher) Dispatch(ctx context.Context, recipientID, reportID uuid.UUID, typ Type, message string) (*Notification, error) {
	if !typ.Valid() {
		return nil, ErrInvalidType
	}

	n, err := d.store.Create(ctx, recipientID, reportID, typ, message)
	if err != nil {
		return nil, err
	}

	if d.registry == nil || d.pusher == nil {
		return n, nil
	}

	if channelID, ok := d.registry.Lookup(recipientID); ok {
		d.pusher.Push(channelID, *n)
	}

	return n, nil
}

// MarkRead delega à camada durável.
func (d *Dispatcher) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, err := d.store.MarkRead(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("notification_id", id.String()).Msg("notificação marcada como lida")
	return n, nil
}

// MarkReadFor marca como lida apenas se a notificação pertence ao
// destinatário informado.
func (d *Dispatcher) MarkReadFor(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	return d.store.MarkReadFor(ctx, id, recipientID)
}

// ListUnread lista não lidas, mais recentes primeiro.
func (d *Dispatcher) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	return d.store.ListUnread(ctx, recipientID)
}

// ListByRecipient lista o histórico completo do destinatário.
func (d *Dispatcher) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	return d.store.ListByRecipient(ctx, recipientID)
}
