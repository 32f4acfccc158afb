package masterdata

import (
	"log/slog"
	"net/http"

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
	r.Route("/masterdata", func(r chi.Router) {
		r.Get("/shipper-groups", h.ListShipperGroups)
		r.Post("/shipper-groups", h.SaveShipperGroup)

		r.Get("/customers", h.ListCustomers)
		r.Get("/customers/{code}", h.GetCustomer)
		r.Post("/customers", h.SaveCustomer)

		r.Get("/routes", h.ListRoutes)
		r.Post("/routes", h.SaveRoute)

		r.Get("/ports", h.ListPorts)
		r.Post("/ports", h.SavePort)

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.SaveProduct)
		r.Post("/product-categories", h.SaveProductCategory)

		r.Get("/marketing", h.ListMarketing)
		r.Post("/marketing", h.SaveMarketing)
	})
}

func (h *Handler) ListShipperGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListShipperGroups(r.Context())
	if err != nil {
		h.logger.Error("list shipper groups failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) SaveShipperGroup(w http.ResponseWriter, r *http.Request) {
	var req SaveShipperGroupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SaveShipperGroup(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	var kind *CustomerKind
	if q := r.URL.Query().Get("kind"); q != "" {
		k := CustomerKind(q)
		kind = &k
	}
	customers, err := h.service.ListCustomers(r.Context(), kind)
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customers)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	dto, err := h.service.GetCustomer(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) SaveCustomer(w http.ResponseWriter, r *http.Request) {
	var req SaveCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SaveCustomer(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.service.CachedRoutes(r.Context())
	if err != nil {
		h.logger.Error("list routes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, routes)
}

func (h *Handler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	var req SaveRouteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SaveRoute(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) ListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.service.ListPorts(r.Context())
	if err != nil {
		h.logger.Error("list ports failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ports)
}

func (h *Handler) SavePort(w http.ResponseWriter, r *http.Request) {
	var req SavePortRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SavePort(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SaveProduct(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}

func (h *Handler) SaveProductCategory(w http.ResponseWriter, r *http.Request) {
	var req SaveProductCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.service.SaveProductCategory(r.Context(), req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMarketing(w http.ResponseWriter, r *http.Request) {
	staff, err := h.service.ListMarketing(r.Context())
	if err != nil {
		h.logger.Error("list marketing failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, staff)
}

func (h *Handler) SaveMarketing(w http.ResponseWriter, r *http.Request) {
	var req SaveMarketingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	dto, err := h.service.SaveMarketing(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto)
}
