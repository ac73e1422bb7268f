package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type memStore struct {
	rows map[uuid.UUID]*Notification
	fail error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*Notification)}
}

func (s *memStore) Create(ctx context.Context, recipientID, reportID uuid.UUID, typ Type, message string) (*Notification, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ReportID:    reportID,
		Type:        typ,
		Message:     message,
	}
	s.rows[n.ID] = n
	return n, nil
}

func (s *memStore) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	n.IsRead = true
	return n, nil
}

func (s *memStore) MarkReadFor(ctx context.Context, id, recipientID uuid.UUID) (*Notification, error) {
	n, ok := s.rows[id]
	if !ok || n.RecipientID != recipientID {
		return nil, ErrNotFound
	}
	n.IsRead = true
	return n, nil
}

func (s *memStore) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	var out []Notification
	for _, n := range s.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *memStore) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]Notification, error) {
	var out []Notification
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, nil
}

type memRegistry struct {
	channels map[uuid.UUID]string
}

func (r *memRegistry) Lookup(userID uuid.UUID) (string, bool) {
	channelID, ok := r.channels[userID]
	return channelID, ok
}

type memPusher struct {
	pushed []string
}

func (p *memPusher) Push(channelID string, n Notification) {
	p.pushed = append(p.pushed, channelID)
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	recipient := uuid.New()
	store := newMemStore()
	registry := &memRegistry{channels: map[uuid.UUID]string{recipient: "chan-1"}}
	pusher := &memPusher{}
	d := NewDispatcher(store, registry, pusher)

	n, err := d.Dispatch(context.Background(), recipient, uuid.New(), TypeStatusUpdate, "Your report #x status has been updated to: ASSIGNED")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if n.IsRead {
		t.Fatal("notificação nasce não lida")
	}
	if len(store.rows) != 1 {
		t.Fatalf("linhas persistidas = %d, esperado 1", len(store.rows))
	}
	if len(pusher.pushed) != 1 || pusher.pushed[0] != "chan-1" {
		t.Fatalf("push esperado em chan-1, obtido %v", pusher.pushed)
	}
}

func TestDispatchWithoutLiveChannel(t *testing.T) {
	store := newMemStore()
	registry := &memRegistry{channels: map[uuid.UUID]string{}}
	pusher := &memPusher{}
	d := NewDispatcher(store, registry, pusher)

	if _, err := d.Dispatch(context.Background(), uuid.New(), uuid.New(), TypeNewMessage, "New message on your report #x"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatal("persistência deveria ocorrer mesmo sem canal")
	}
	if len(pusher.pushed) != 0 {
		t.Fatal("sem canal aberto não há push")
	}
}

func TestDispatchPersistFailure(t *testing.T) {
	boom := errors.New("sem conexão com o banco")
	store := newMemStore()
	store.fail = boom
	pusher := &memPusher{}
	recipient := uuid.New()
	registry := &memRegistry{channels: map[uuid.UUID]string{recipient: "chan-1"}}
	d := NewDispatcher(store, registry, pusher)

	if _, err := d.Dispatch(context.Background(), recipient, uuid.New(), TypeStatusUpdate, "m"); !errors.Is(err, boom) {
		t.Fatalf("esperado erro de persistência, obtido %v", err)
	}
	if len(pusher.pushed) != 0 {
		t.Fatal("falha de persistência não pode gerar push")
	}
}

func TestDispatchInvalidType(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(store, nil, nil)

	if _, err := d.Dispatch(context.Background(), uuid.New(), uuid.New(), Type("BROADCAST"), "m"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("esperado ErrInvalidType, obtido %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatal("tipo inválido não persiste")
	}
}

func TestMarkReadForOwnership(t *testing.T) {
	recipient := uuid.New()
	store := newMemStore()
	d := NewDispatcher(store, nil, nil)
	ctx := context.Background()

	n, err := d.Dispatch(ctx, recipient, uuid.New(), TypeStatusUpdate, "m")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// outro usuário não enxerga nem marca
	if _, err := d.MarkReadFor(ctx, n.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperado ErrNotFound para terceiro, obtido %v", err)
	}

	marked, err := d.MarkReadFor(ctx, n.ID, recipient)
	if err != nil {
		t.Fatalf("MarkReadFor: %v", err)
	}
	if !marked.IsRead {
		t.Fatal("notificação deveria estar lida")
	}

	unread, err := d.ListUnread(ctx, recipient)
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("não lidas = %d, esperado 0", len(unread))
	}

	// marcar de novo é idempotente: continua lida, sem erro
	again, err := d.MarkReadFor(ctx, n.ID, recipient)
	if err != nil {
		t.Fatalf("segunda marcação: %v", err)
	}
	if !again.IsRead {
		t.Fatal("segunda marcação deveria manter lida")
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	recipient := uuid.New()
	store := newMemStore()
	d := NewDispatcher(store, nil, nil)
	ctx := context.Background()

	n, err := d.Dispatch(ctx, recipient, uuid.New(), TypeNewMessage, "m")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	first, err := d.MarkRead(ctx, n.ID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !first.IsRead {
		t.Fatal("notificação deveria estar lida")
	}

	second, err := d.MarkRead(ctx, n.ID)
	if err != nil {
		t.Fatalf("MarkRead repetido: %v", err)
	}
	if !second.IsRead {
		t.Fatal("marcação repetida deveria manter lida")
	}

	if _, err := d.MarkRead(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("id desconhecido: esperado ErrNotFound, obtido %v", err)
	}
}
