package maintainer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Lookup abstrai as consultas de vínculo usadas pelo diretório.
type Lookup interface {
	TechnicianCategories(ctx context.Context, userID uuid.UUID) ([]int16, error)
	OfficeForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	OfficeCategories(ctx context.Context, officeID uuid.UUID) ([]int16, error)
}

const (
	cacheKeyPrefix = "maintainer:resolution:"
	cacheTTL       = 60 * time.Second
)

// Directory normaliza técnicos e mantenedores de empresa externa em uma
// única forma: o conjunto de categorias pelas quais respondem.
type Directory struct {
	lookup Lookup
	cache  *redis.Client
}

// NewDirectory cria o diretório. O cache é opcional.
func NewDirectory(lookup Lookup, cache *redis.Client) *Directory {
	return &Directory{lookup: lookup, cache: cache}
}

type cachedResolution struct {
	Categories []int16    `json:"categories"`
	Via        Via        `json:"via"`
	OfficeID   *uuid.UUID `json:"office_id,omitempty"`
}

// Resolve consulta as categorias do mantenedor: primeiro o vínculo direto
// de técnico, depois o vínculo via empresa externa. Ambos vazios não é
// erro: devolve resolução vazia e o chamador nega autorização.
func (d *Directory) Resolve(ctx context.Context, userID uuid.UUID) (Resolution, error) {
	if res, ok := d.fromCache(ctx, userID); ok {
		return res, nil
	}

	categories, err := d.lookup.TechnicianCategories(ctx, userID)
	if err != nil {
		return Unresolved(), err
	}
	if len(categories) > 0 {
		res := newResolution(categories, ViaTechnician, nil)
		d.store(ctx, userID, res)
		return res, nil
	}

	officeID, err := d.lookup.OfficeForUser(ctx, userID)
	if err != nil {
		return Unresolved(), err
	}
	if officeID == nil {
		return Unresolved(), nil
	}

	categories, err = d.lookup.OfficeCategories(ctx, *officeID)
	if err != nil {
		return Unresolved(), err
	}
	if len(categories) == 0 {
		return Unresolved(), nil
	}

	res := newResolution(categories, ViaExternalOffice, officeID)
	d.store(ctx, userID, res)
	return res, nil
}

// Invalidate remove a entrada de cache do usuário após mudança de vínculo.
func (d *Directory) Invalidate(ctx context.Context, userID uuid.UUID) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Del(ctx, cacheKeyPrefix+userID.String()).Err(); err != nil {
		log.Debug().Err(err).Str("user_id", userID.String()).Msg("cache de mantenedor não invalidado")
	}
}

func (d *Directory) fromCache(ctx context.Context, userID uuid.UUID) (Resolution, bool) {
	if d.cache == nil {
		return Resolution{}, false
	}

	raw, err := d.cache.Get(ctx, cacheKeyPrefix+userID.String()).Bytes()
	if err != nil {
		return Resolution{}, false
	}

	var cached cachedResolution
	if err := json.Unmarshal(raw, &cached); err != nil {
		return Resolution{}, false
	}

	return newResolution(cached.Categories, cached.Via, cached.OfficeID), true
}

func (d *Directory) store(ctx context.Context, userID uuid.UUID, res Resolution) {
	if d.cache == nil {
		return
	}

	categories := make([]int16, 0, len(res.Categories))
	for id := range res.Categories {
		categories = append(categories, id)
	}

	raw, err := json.Marshal(cachedResolution{Categories: categories, Via: res.Via, OfficeID: res.OfficeID})
	if err != nil {
		return
	}

	if err := d.cache.Set(ctx, cacheKeyPrefix+userID.String(), raw, cacheTTL).Err(); err != nil {
		log.Debug().Err(err).Str("user_id", userID.String()).Msg("cache de mantenedor não gravado")
	}
}

func newResolution(categories []int16, via Via, officeID *uuid.UUID) Resolution {
	set := make(map[int16]struct{}, len(categories))
	for _, id := range categories {
		set[id] = struct{}{}
	}
	return Resolution{Categories: set, Via: via, OfficeID: officeID}
}
