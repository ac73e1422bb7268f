package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/gestaozabele/ouvidoria/internal/http/middleware"
	"github.com/gestaozabele/ouvidoria/internal/report"
	"github.com/gestaozabele/ouvidoria/internal/storage"
)

const maxPhotoBytes = 5 << 20

// actorFromRequest monta a identidade do ator a partir do contexto.
func actorFromRequest(r *http.Request) (report.Actor, error) {
	subject := httpmiddleware.GetSubject(r.Context())
	id, err := uuid.Parse(subject)
	if err != nil {
		return report.Actor{}, errors.New("subject inválido")
	}
	return report.Actor{ID: id, Role: httpmiddleware.GetRole(r.Context())}, nil
}

// CreateReport abre um novo relato em nome do cidadão autenticado.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	var payload struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		CategoryID  int16   `json:"category_id"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Address     string  `json:"address"`
		Anonymous   bool    `json:"anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	rep, err := h.lifecycle.Create(r.Context(), report.CreateInput{
		Title:       payload.Title,
		Description: payload.Description,
		CategoryID:  payload.CategoryID,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
		Address:     payload.Address,
		Anonymous:   payload.Anonymous,
		OwnerID:     actor.ID,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, rep)
}

// ListReports lista relatos ativos (visão pública autenticada) ou todos,
// conforme o papel do consulente.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	var filter report.Filter
	filter.ActiveOnly = actor.Role == report.RoleCitizen

	if all := strings.TrimSpace(r.URL.Query().Get("all")); all == "true" && actor.Role != report.RoleCitizen {
		filter.ActiveOnly = false
	}

	if categoryStr := strings.TrimSpace(r.URL.Query().Get("category_id")); categoryStr != "" {
		v, err := strconv.ParseInt(categoryStr, 10, 16)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "category_id inválido", nil)
			return
		}
		categoryID := int16(v)
		filter.CategoryID = &categoryID
	}

	if statusParam := strings.TrimSpace(r.URL.Query().Get("status")); statusParam != "" {
		for _, part := range strings.Split(statusParam, ",") {
			status, err := report.ParseStatus(part)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "VALIDATION", "status inválido", nil)
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}

	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = v
		}
	}
	if offsetStr := strings.TrimSpace(r.URL.Query().Get("offset")); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = v
		}
	}

	reports, err := h.lifecycle.List(r.Context(), actor, filter)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// ListMyReports lista relatos do próprio autor, inclusive encerrados.
func (h *Handler) ListMyReports(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	filter := report.Filter{OwnerID: &actor.ID}
	reports, err := h.lifecycle.List(r.Context(), actor, filter)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// GetReport devolve o detalhe de um relato.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
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

	rep, err := h.lifecycle.Get(r.Context(), actor, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rep)
}

// ApproveReport move o relato para ASSIGNED.
func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor report.Actor, id uuid.UUID) (*report.Report, error) {
		return h.lifecycle.Approve(r.Context(), actor, id)
	})
}

// RejectReport recusa o relato com motivação obrigatória.
func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		Motivation string `json:"motivation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	rep, err := h.lifecycle.Reject(r.Context(), actor, id, payload.Motivation)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rep)
}

// GetReportRejection devolve o registro de recusa do relato.
func (h *Handler) GetReportRejection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	rejection, err := h.lifecycle.GetRejection(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rejection)
}

// SetReportStatus aplica transição de mantenedor.
func (h *Handler) SetReportStatus(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	status, err := report.ParseStatus(payload.Status)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	rep, err := h.lifecycle.SetStatus(r.Context(), actor, id, status)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rep)
}

// AssignExternalOffice vincula o relato a uma empresa externa.
func (h *Handler) AssignExternalOffice(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		OfficeID string `json:"office_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	officeID, err := uuid.Parse(payload.OfficeID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "office_id inválido", nil)
		return
	}

	rep, err := h.lifecycle.AssignExternal(r.Context(), actor, id, officeID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rep)
}

// UnassignExternalOffice desfaz o vínculo com a empresa externa.
func (h *Handler) UnassignExternalOffice(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor report.Actor, id uuid.UUID) (*report.Report, error) {
		return h.lifecycle.UnassignExternal(r.Context(), actor, id)
	})
}

// ListReportComments lista mensagens do relato.
func (h *Handler) ListReportComments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	comments, err := h.lifecycle.ListComments(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// AddReportComment registra nova mensagem no relato.
func (h *Handler) AddReportComment(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	comment, err := h.lifecycle.AddComment(r.Context(), actor, id, payload.Body)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, comment)
}

// UploadReportPhoto armazena a foto e associa a referência ao relato.
func (h *Handler) UploadReportPhoto(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "multipart inválido", nil)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo photo obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "arquivo ilegível", nil)
		return
	}
	if len(body) > maxPhotoBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "arquivo excede o limite", nil)
		return
	}

	key := fmt.Sprintf("reports/%s/%d-%s", id, time.Now().UnixNano(), header.Filename)
	result, err := h.uploader.Upload(r.Context(), storage.UploadInput{
		Key:         key,
		Body:        body,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "upload indisponível", nil)
		return
	}

	if err := h.lifecycle.AttachPhoto(r.Context(), actor, id, result.URL); err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"url": result.URL})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(report.Actor, uuid.UUID) (*report.Report, error)) {
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

	rep, err := fn(actor, id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rep)
}
