package pricing

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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/pricing", func(r chi.Router) {
		r.Get("/vendor-lists", h.listKind(KindVendor))
		r.Post("/vendor-lists", h.saveKind(KindVendor))

		r.Get("/shipping-lists", h.listKind(KindShipping))
		r.Post("/shipping-lists", h.saveKind(KindShipping))

		r.Get("/lists/{id}", h.GetList)
		r.Post("/components/{id}/convert-combo", h.ConvertCombo)
	})
}

func (h *Handler) listKind(kind ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lists, err := h.service.List(r.Context(), kind)
		if err != nil {
			h.logger.Error("list price lists failed",
				slog.String("kind", string(kind)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, lists)
	}
}

func (h *Handler) saveKind(kind ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SavePriceListRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
			return
		}
		dto, err := h.service.Save(r.Context(), kind, req)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, dto)
	}
}

func (h *Handler) GetList(w http.ResponseWriter, r *http.Request) {
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

func (h *Handler) ConvertCombo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	if err := h.service.ConvertCombo(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
