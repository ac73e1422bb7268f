package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gestaozabele/ouvidoria/internal/auth"
	"github.com/gestaozabele/ouvidoria/internal/config"
	httpmiddleware "github.com/gestaozabele/ouvidoria/internal/http/middleware"
	"github.com/gestaozabele/ouvidoria/internal/notification"
	"github.com/gestaozabele/ouvidoria/internal/realtime"
	"github.com/gestaozabele/ouvidoria/internal/report"
	"github.com/gestaozabele/ouvidoria/internal/storage"
)

// Handler agrega as dependências dos endpoints HTTP.
type Handler struct {
	cfg        *config.Config
	jwt        *auth.JWTManager
	lifecycle  *report.Lifecycle
	dispatcher *notification.Dispatcher
	hub        *realtime.Hub
	uploader   storage.Uploader

	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, jwtManager *auth.JWTManager, lifecycle *report.Lifecycle, dispatcher *notification.Dispatcher, hub *realtime.Hub, uploader storage.Uploader) http.Handler {
	if uploader == nil {
		uploader = storage.NoopUploader{}
	}

	h := &Handler{
		cfg:           cfg,
		jwt:           jwtManager,
		lifecycle:     lifecycle,
		dispatcher:    dispatcher,
		hub:           hub,
		uploader:      uploader,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))
		public.Get("/health", h.Health)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(jwtManager))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Route("/reports", func(rr chi.Router) {
			rr.Post("/", h.CreateReport)
			rr.Get("/", h.ListReports)
			rr.Get("/mine", h.ListMyReports)
			rr.Get("/{id}", h.GetReport)
			rr.Get("/{id}/rejection", h.GetReportRejection)

			rr.Get("/{id}/comments", h.ListReportComments)
			rr.Post("/{id}/comments", h.AddReportComment)
			rr.Post("/{id}/photos", h.UploadReportPhoto)

			rr.Group(func(officer chi.Router) {
				officer.Use(httpmiddleware.RequireRoles(report.RoleOfficer))
				officer.Post("/{id}/approve", h.ApproveReport)
				officer.Post("/{id}/reject", h.RejectReport)
			})

			rr.Group(func(maint chi.Router) {
				maint.Use(httpmiddleware.RequireRoles(report.RoleTechnician, report.RoleExternal))
				maint.Post("/{id}/status", h.SetReportStatus)
			})

			rr.Group(func(tech chi.Router) {
				tech.Use(httpmiddleware.RequireRoles(report.RoleTechnician))
				tech.Put("/{id}/external-office", h.AssignExternalOffice)
				tech.Delete("/{id}/external-office", h.UnassignExternalOffice)
			})
		})

		private.Route("/notifications", func(nr chi.Router) {
			nr.Get("/", h.ListNotifications)
			nr.Get("/unread", h.ListUnreadNotifications)
			nr.Post("/{id}/read", h.MarkNotificationRead)
			nr.Get("/subscribe", h.SubscribeNotifications)
		})
	})

	return r
}

// Health responde verificação simples de vida do processo.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":            "UP",
		"connected_clients": h.hub.Registry().Count(),
	})
}
