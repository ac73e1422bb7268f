package maintainer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubLookup struct {
	technician map[uuid.UUID][]int16
	userOffice map[uuid.UUID]uuid.UUID
	office     map[uuid.UUID][]int16
	fail       error
}

func (s *stubLookup) TechnicianCategories(ctx context.Context, userID uuid.UUID) ([]int16, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.technician[userID], nil
}

func (s *stubLookup) OfficeForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	officeID, ok := s.userOffice[userID]
	if !ok {
		return nil, nil
	}
	return &officeID, nil
}

func (s *stubLookup) OfficeCategories(ctx context.Context, officeID uuid.UUID) ([]int16, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	return s.office[officeID], nil
}

func TestResolveTechnicianFirst(t *testing.T) {
	userID := uuid.New()
	officeID := uuid.New()
	lookup := &stubLookup{
		technician: map[uuid.UUID][]int16{userID: {1, 4}},
		userOffice: map[uuid.UUID]uuid.UUID{userID: officeID},
		office:     map[uuid.UUID][]int16{officeID: {9}},
	}
	dir := NewDirectory(lookup, nil)

	res, err := dir.Resolve(context.Background(), userID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Via != ViaTechnician {
		t.Fatalf("via = %s, esperado TECHNICIAN", res.Via)
	}
	if !res.Authorized(1) || !res.Authorized(4) {
		t.Fatalf("categorias do técnico ausentes: %+v", res.Categories)
	}
	if res.Authorized(9) {
		t.Fatalf("vínculo direto não deveria incluir categorias da empresa")
	}
	if res.OfficeID != nil {
		t.Fatalf("vínculo direto não carrega empresa")
	}
}

func TestResolveFallbackToOffice(t *testing.T) {
	userID := uuid.New()
	officeID := uuid.New()
	lookup := &stubLookup{
		userOffice: map[uuid.UUID]uuid.UUID{userID: officeID},
		office:     map[uuid.UUID][]int16{officeID: {2, 7}},
	}
	dir := NewDirectory(lookup, nil)

	res, err := dir.Resolve(context.Background(), userID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Via != ViaExternalOffice {
		t.Fatalf("via = %s, esperado EXTERNAL_OFFICE", res.Via)
	}
	if res.OfficeID == nil || *res.OfficeID != officeID {
		t.Fatalf("empresa não resolvida")
	}
	if !res.Authorized(2) || res.Authorized(3) {
		t.Fatalf("conjunto de categorias errado: %+v", res.Categories)
	}
}

func TestResolveUnknownUser(t *testing.T) {
	dir := NewDirectory(&stubLookup{}, nil)

	res, err := dir.Resolve(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("usuário sem vínculo não é erro: %v", err)
	}
	if !res.Empty() || res.Via != ViaNone {
		t.Fatalf("esperada resolução vazia, obtido %+v", res)
	}
	if res.Authorized(1) {
		t.Fatalf("resolução vazia não autoriza categoria alguma")
	}
}

func TestResolveOfficeWithoutCategories(t *testing.T) {
	userID := uuid.New()
	officeID := uuid.New()
	lookup := &stubLookup{
		userOffice: map[uuid.UUID]uuid.UUID{userID: officeID},
	}
	dir := NewDirectory(lookup, nil)

	res, err := dir.Resolve(context.Background(), userID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("empresa sem categorias resolve vazio, obtido %+v", res)
	}
}

func TestResolveLookupFailure(t *testing.T) {
	boom := errors.New("conexão recusada")
	dir := NewDirectory(&stubLookup{fail: boom}, nil)

	if _, err := dir.Resolve(context.Background(), uuid.New()); !errors.Is(err, boom) {
		t.Fatalf("esperado erro de consulta, obtido %v", err)
	}
}
