package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/ouvidoria/internal/auth"
	"github.com/gestaozabele/ouvidoria/internal/config"
	"github.com/gestaozabele/ouvidoria/internal/maintainer"
	"github.com/gestaozabele/ouvidoria/internal/notification"
	"github.com/gestaozabele/ouvidoria/internal/realtime"
	"github.com/gestaozabele/ouvidoria/internal/report"
)

type stubReportStore struct {
	reports map[uuid.UUID]*report.Report
	offices map[uuid.UUID]bool
}

func (s *stubReportStore) Create(ctx context.Context, input report.CreateInput) (*report.Report, error) {
	rep := &report.Report{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Anonymous:   input.Anonymous,
		OwnerID:     input.OwnerID,
		Status:      report.StatusPendingApproval,
	}
	s.reports[rep.ID] = rep
	return rep, nil
}

func (s *stubReportStore) GetByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	rep, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	clone := *rep
	return &clone, nil
}

func (s *stubReportStore) List(ctx context.Context, filter report.Filter) ([]report.Report, error) {
	var out []report.Report
	for _, rep := range s.reports {
		out = append(out, *rep)
	}
	return out, nil
}

func (s *stubReportStore) SetStatus(ctx context.Context, id uuid.UUID, from, to report.Status) (*report.Report, error) {
	rep, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	if rep.Status != from {
		return nil, report.ErrStaleWrite
	}
	rep.Status = to
	if to.Terminal() {
		rep.ExternalOfficeID = nil
	}
	clone := *rep
	return &clone, nil
}

func (s *stubReportStore) SetExternalOffice(ctx context.Context, id uuid.UUID, officeID *uuid.UUID) (*report.Report, error) {
	rep, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	rep.ExternalOfficeID = officeID
	clone := *rep
	return &clone, nil
}

func (s *stubReportStore) Reject(ctx context.Context, id uuid.UUID, from report.Status, officerID uuid.UUID, motivation string) (*report.Report, error) {
	rep, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	if rep.Status != from {
		return nil, report.ErrStaleWrite
	}
	rep.Status = report.StatusRejected
	rep.ExternalOfficeID = nil
	clone := *rep
	return &clone, nil
}

func (s *stubReportStore) GetRejection(ctx context.Context, reportID uuid.UUID) (*report.Rejection, error) {
	return nil, report.ErrNotFound
}

func (s *stubReportStore) AddComment(ctx context.Context, reportID, authorID uuid.UUID, body string) (*report.Comment, error) {
	return &report.Comment{ID: uuid.New(), ReportID: reportID, AuthorID: authorID, Body: body}, nil
}

func (s *stubReportStore) ListComments(ctx context.Context, reportID uuid.UUID) ([]report.Comment, error) {
	return nil, nil
}

func (s *stubReportStore) AddPhoto(ctx context.Context, reportID uuid.UUID, url string) error {
	return nil
}

func (s *stubReportStore) OfficeExists(ctx context.Context, officeID uuid.UUID) (bool, error) {
	return s.offices[officeID], nil
}

type stubAuthorizer struct {
	allow   bool
	lockErr error
}

func (g *stubAuthorizer) CanActOnReport(ctx context.Context, userID, reportID uuid.UUID) bool {
	return g.allow
}

func (g *stubAuthorizer) CheckExternalLock(ctx context.Context, reportID, actorID uuid.UUID) error {
	return g.lockErr
}

type stubNotificationStore struct {
	rows map[uuid.UUID]*notification.Notification
}

func (s *stubNotificationStore) Create(ctx context.Context, recipientID, reportID uuid.UUID, typ notification.Type, message string) (*notification.Notification, error) {
	n := &notification.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		ReportID:    reportID,
		Type:        typ,
		Message:     message,
		CreatedAt:   time.Now(),
	}
	s.rows[n.ID] = n
	return n, nil
}

func (s *stubNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	n, ok := s.rows[id]
	if !ok {
		return nil, notification.ErrNotFound
	}
	n.IsRead = true
	return n, nil
}

func (s *stubNotificationStore) MarkReadFor(ctx context.Context, id, recipientID uuid.UUID) (*notification.Notification, error) {
	n, ok := s.rows[id]
	if !ok || n.RecipientID != recipientID {
		return nil, notification.ErrNotFound
	}
	n.IsRead = true
	return n, nil
}

func (s *stubNotificationStore) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]notification.Notification, error) {
	var out []notification.Notification
	for _, n := range s.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *stubNotificationStore) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]notification.Notification, error) {
	var out []notification.Notification
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, nil
}

type testEnv struct {
	router    http.Handler
	jwt       *auth.JWTManager
	store     *stubReportStore
	guard     *stubAuthorizer
	notifRows *stubNotificationStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Port:            8080,
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		JWTAccessTTL:    time.Hour,
		AllowOrigins:    []string{"*"},
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 100, Burst: 200},
	}

	store := &stubReportStore{
		reports: make(map[uuid.UUID]*report.Report),
		offices: make(map[uuid.UUID]bool),
	}
	guard := &stubAuthorizer{allow: true}
	notifRows := &stubNotificationStore{rows: make(map[uuid.UUID]*notification.Notification)}

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry)
	dispatcher := notification.NewDispatcher(notifRows, registry, hub)
	lifecycle := report.NewLifecycle(store, guard, dispatcher, nil)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	return &testEnv{
		router:    NewRouter(cfg, jwtManager, lifecycle, dispatcher, hub, nil),
		jwt:       jwtManager,
		store:     store,
		guard:     guard,
		notifRows: notifRows,
	}
}

func (env *testEnv) seed(status report.Status, owner uuid.UUID) *report.Report {
	rep := &report.Report{
		ID:         uuid.New(),
		Title:      "Poste apagado",
		CategoryID: 2,
		OwnerID:    owner,
		Status:     status,
	}
	env.store.reports[rep.ID] = rep
	return rep
}

func (env *testEnv) do(t *testing.T, method, path, role string, subject uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		token, err := env.jwt.GenerateAccessToken(subject.String(), role)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	citizen := uuid.New()
	officer := uuid.New()
	technician := uuid.New()

	pending := env.seed(report.StatusPendingApproval, citizen)
	assigned := env.seed(report.StatusAssigned, citizen)
	office := uuid.New()
	env.store.offices[office] = true

	tests := []struct {
		name    string
		method  string
		path    string
		role    string
		subject uuid.UUID
		body    any
		status  int
	}{
		{"health", http.MethodGet, "/health", "", uuid.Nil, nil, http.StatusOK},
		{"sem-token", http.MethodGet, "/reports", "", uuid.Nil, nil, http.StatusUnauthorized},
		{"create", http.MethodPost, "/reports", report.RoleCitizen, citizen, map[string]any{"title": "Bueiro aberto", "description": "Na esquina da praça", "category_id": 2}, http.StatusCreated},
		{"create-invalido", http.MethodPost, "/reports", report.RoleCitizen, citizen, map[string]any{"description": "sem título", "category_id": 2}, http.StatusUnprocessableEntity},
		{"list", http.MethodGet, "/reports", report.RoleCitizen, citizen, nil, http.StatusOK},
		{"mine", http.MethodGet, "/reports/mine", report.RoleCitizen, citizen, nil, http.StatusOK},
		{"get", http.MethodGet, "/reports/" + pending.ID.String(), report.RoleCitizen, citizen, nil, http.StatusOK},
		{"get-inexistente", http.MethodGet, "/reports/" + uuid.NewString(), report.RoleCitizen, citizen, nil, http.StatusNotFound},
		{"approve-cidadao", http.MethodPost, "/reports/" + pending.ID.String() + "/approve", report.RoleCitizen, citizen, nil, http.StatusForbidden},
		{"approve", http.MethodPost, "/reports/" + pending.ID.String() + "/approve", report.RoleOfficer, officer, nil, http.StatusOK},
		{"approve-repetido", http.MethodPost, "/reports/" + pending.ID.String() + "/approve", report.RoleOfficer, officer, nil, http.StatusConflict},
		{"reject-motivacao-curta", http.MethodPost, "/reports/" + assigned.ID.String() + "/reject", report.RoleOfficer, officer, map[string]any{"motivation": "curta"}, http.StatusUnprocessableEntity},
		{"status", http.MethodPost, "/reports/" + assigned.ID.String() + "/status", report.RoleTechnician, technician, map[string]any{"status": "IN_PROGRESS"}, http.StatusOK},
		{"status-vocabulario", http.MethodPost, "/reports/" + assigned.ID.String() + "/status", report.RoleTechnician, technician, map[string]any{"status": "DONE"}, http.StatusUnprocessableEntity},
		{"status-cidadao", http.MethodPost, "/reports/" + assigned.ID.String() + "/status", report.RoleCitizen, citizen, map[string]any{"status": "RESOLVED"}, http.StatusForbidden},
		{"external-office", http.MethodPut, "/reports/" + assigned.ID.String() + "/external-office", report.RoleTechnician, technician, map[string]any{"office_id": office.String()}, http.StatusOK},
		{"external-office-inexistente", http.MethodPut, "/reports/" + assigned.ID.String() + "/external-office", report.RoleTechnician, technician, map[string]any{"office_id": uuid.NewString()}, http.StatusUnprocessableEntity},
		{"external-office-clear", http.MethodDelete, "/reports/" + assigned.ID.String() + "/external-office", report.RoleTechnician, technician, nil, http.StatusOK},
		{"comments", http.MethodGet, "/reports/" + assigned.ID.String() + "/comments", report.RoleCitizen, citizen, nil, http.StatusOK},
		{"comment-add", http.MethodPost, "/reports/" + assigned.ID.String() + "/comments", report.RoleOfficer, officer, map[string]any{"body": "Equipe a caminho"}, http.StatusCreated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.role, tc.subject, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReportNotFoundHidesDenial(t *testing.T) {
	env := newTestEnv(t)
	env.guard.allow = false
	technician := uuid.New()
	rep := env.seed(report.StatusAssigned, uuid.New())

	rec := env.do(t, http.MethodPost, "/reports/"+rep.ID.String()+"/status", report.RoleTechnician, technician, map[string]any{"status": "IN_PROGRESS"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("negação deveria responder 404, obtido %d", rec.Code)
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Fatalf("código = %+v, esperado NOT_FOUND", envelope.Error)
	}
}

func TestReportExternalLockConflict(t *testing.T) {
	env := newTestEnv(t)
	env.guard.lockErr = maintainer.ErrExternalLock
	technician := uuid.New()
	rep := env.seed(report.StatusInProgress, uuid.New())

	rec := env.do(t, http.MethodPost, "/reports/"+rep.ID.String()+"/status", report.RoleTechnician, technician, map[string]any{"status": "RESOLVED"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("esperado 409, obtido %d", rec.Code)
	}

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != "EXTERNAL_LOCK" {
		t.Fatalf("código = %+v, esperado EXTERNAL_LOCK", envelope.Error)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	citizen := uuid.New()
	officer := uuid.New()
	rep := env.seed(report.StatusPendingApproval, citizen)

	// aprovação gera a notificação do autor
	rec := env.do(t, http.MethodPost, "/reports/"+rep.ID.String()+"/approve", report.RoleOfficer, officer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/notifications/unread", report.RoleCitizen, citizen, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread: %d", rec.Code)
	}

	var listing struct {
		Data struct {
			Notifications []notification.Notification `json:"notifications"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Data.Notifications) != 1 {
		t.Fatalf("não lidas = %d, esperado 1", len(listing.Data.Notifications))
	}
	n := listing.Data.Notifications[0]
	if n.Type != notification.TypeStatusUpdate {
		t.Fatalf("tipo = %s, esperado STATUS_UPDATE", n.Type)
	}

	// outro usuário não marca a notificação alheia
	rec = env.do(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read", report.RoleCitizen, uuid.New(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("terceiro marcando: esperado 404, obtido %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/notifications/"+n.ID.String()+"/read", report.RoleCitizen, citizen, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/notifications/unread", report.RoleCitizen, citizen, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread: %d", rec.Code)
	}
	listing.Data.Notifications = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Data.Notifications) != 0 {
		t.Fatalf("não lidas após leitura = %d, esperado 0", len(listing.Data.Notifications))
	}
}
