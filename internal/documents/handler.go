package documents

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ItsMalma/fiems-sub000/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

var routeFamilies = map[string]Family{
	"inquiries":      FamilyInquiry,
	"delivery-notes": FamilyDeliveryNote,
	"handovers":      FamilyHandover,
	"requests":       FamilyRequest,
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/{family}", h.List)
		r.Post("/{family}", h.Save)
		r.Get("/{family}/{id}", h.Get)
	})
}

func (h *Handler) family(r *http.Request) (Family, bool) {
	family, ok := routeFamilies[chi.URLParam(r, "family")]
	return family, ok
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	family, ok := h.family(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document family")
		return
	}
	docs, err := h.service.List(r.Context(), family)
	if err != nil {
		h.logger.Error("list documents failed",
			slog.String("family", string(family)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.family(r); !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document family")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	dto, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	family, ok := h.family(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown document family")
		return
	}
	var req SaveDocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.Save(r.Context(), family, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}
