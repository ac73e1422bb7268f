package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry mapeia usuário → canal de push aberto. É o único estado mutável
// compartilhado do processo: efêmero, não persistido, reconstruído vazio a
// cada reinício. Cada usuário mantém no máximo um canal; um novo registro
// substitui o anterior.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[uuid.UUID]string
	byChanID map[string]uuid.UUID
}

// NewRegistry cria registro vazio.
func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[uuid.UUID]string),
		byChanID: make(map[string]uuid.UUID),
	}
}

// RegisterConnection associa o canal ao usuário.
func (r *Registry) RegisterConnection(userID uuid.UUID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok {
		delete(r.byChanID, old)
	}
	r.byUser[userID] = channelID
	r.byChanID[channelID] = userID
}

// UnregisterConnection remove o canal, se ainda for o canal ativo do usuário.
func (r *Registry) UnregisterConnection(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byChanID[channelID]
	if !ok {
		return
	}
	delete(r.byChanID, channelID)
	if r.byUser[userID] == channelID {
		delete(r.byUser, userID)
	}
}

// Lookup devolve o canal aberto do usuário, se houver.
func (r *Registry) Lookup(userID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channelID, ok := r.byUser[userID]
	return channelID, ok
}

// Count devolve o total de conexões ativas.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChanID)
}
