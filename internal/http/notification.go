package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ListNotifications devolve o histórico do destinatário autenticado.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	notifications, err := h.dispatcher.ListByRecipient(r.Context(), actor.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// ListUnreadNotifications devolve apenas as não lidas, mais recentes primeiro.
func (h *Handler) ListUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	notifications, err := h.dispatcher.ListUnread(r.Context(), actor.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkNotificationRead marca a notificação como lida. A operação é
// idempotente.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	// destinatário é o único que pode marcar como lida
	n, err := h.dispatcher.MarkReadFor(r.Context(), id, actor.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, n)
}

// SubscribeNotifications abre o canal SSE de push para o usuário.
func (h *Handler) SubscribeNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	h.hub.Subscribe(w, r, actor.ID)
}
