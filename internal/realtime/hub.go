package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/ouvidoria/internal/notification"
)

const clientBuffer = 10

type client struct {
	userID uuid.UUID
	send   chan notification.Notification
}

// Hub é a camada de canais: mantém clientes SSE conectados e entrega
// payloads de push. O despachante de notificações só conversa com o hub
// através de Push e do Lookup do registro.
type Hub struct {
	registry *Registry

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub cria o hub ligado ao registro de conexões.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		clients:  make(map[string]*client),
	}
}

// Registry expõe o registro para leitura pelo despachante.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Push entrega a notificação no canal indicado, sem bloquear: cliente com
// buffer cheio ou canal já fechado perde o push. A linha persistida segue
// sendo a entrega garantida.
func (h *Hub) Push(channelID string, n notification.Notification) {
	h.mu.RLock()
	c, ok := h.clients[channelID]
	h.mu.RUnlock()

	if !ok {
		return
	}

	select {
	case c.send <- n:
	default:
		log.Warn().
			Str("channel_id", channelID).
			Str("recipient_id", n.RecipientID.String()).
			Msg("push descartado: buffer do cliente cheio")
	}
}

// Subscribe abre um canal SSE para o usuário autenticado e bloqueia até a
// desconexão do cliente.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming não suportado", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	channelID := uuid.NewString()
	c := &client{userID: userID, send: make(chan notification.Notification, clientBuffer)}

	h.mu.Lock()
	h.clients[channelID] = c
	h.mu.Unlock()
	h.registry.RegisterConnection(userID, channelID)

	defer func() {
		h.registry.UnregisterConnection(channelID)
		h.mu.Lock()
		delete(h.clients, channelID)
		h.mu.Unlock()
		log.Info().Str("user_id", userID.String()).Msg("canal de push encerrado")
	}()

	log.Info().Str("user_id", userID.String()).Str("channel_id", channelID).Msg("canal de push aberto")

	fmt.Fprintf(w, "data: %s\n\n", `{"type":"connected"}`)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-c.send:
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
