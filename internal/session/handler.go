// AngelaMos | 2026
// handler.go

package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/order"
	"github.com/nexxstore/storefront/internal/user"
)

type Handler struct {
	manager   *Manager
	validator *validator.Validate
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager:   manager,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the session API. limiter guards the credential
// endpoints and may be nil.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	limiter func(http.Handler) http.Handler,
) {
	r.Route("/session", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter)
			}
			r.Post("/login", h.Login)
			r.Post("/register", h.Register)
		})

		r.Post("/logout", h.Logout)
		r.Get("/", h.Current)
		r.Get("/permissions/{capability}", h.HasPermission)
		r.Get("/roles/{role}", h.HasRole)

		r.Put("/profile", h.UpdateProfile)
		r.Post("/balance/deposit", h.Deposit)
		r.Post("/balance/withdraw", h.Withdraw)
		r.Post("/bonus", h.AddBonus)
		r.Get("/orders", h.Orders)
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.manager.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, res)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.manager.Register(r.Context(), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, res)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, StateResponse{View: h.manager.View()})
}

func (h *Handler) Current(w http.ResponseWriter, _ *http.Request) {
	resp := StateResponse{View: h.manager.View()}
	if u, ok := h.manager.CurrentUser(); ok {
		resp.User = &u
	}

	core.OK(w, resp)
}

func (h *Handler) HasPermission(w http.ResponseWriter, r *http.Request) {
	capability := chi.URLParam(r, "capability")
	core.OK(w, CheckResponse{Allowed: h.manager.HasPermission(capability)})
}

func (h *Handler) HasRole(w http.ResponseWriter, r *http.Request) {
	role := user.Role(chi.URLParam(r, "role"))
	core.OK(w, CheckResponse{Allowed: h.manager.HasRole(role)})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req user.ProfileUpdate
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.manager.UpdateProfile(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, updated)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.manager.AddToBalance(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, BalanceResponse{Balance: balance})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.manager.DeductFromBalance(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, BalanceResponse{Balance: balance})
}

func (h *Handler) AddBonus(w http.ResponseWriter, r *http.Request) {
	var req BonusRequest
	if !h.decode(w, r, &req) {
		return
	}

	total, err := h.manager.AddBonusPoints(r.Context(), req.Points)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, BonusResponse{BonusPoints: total})
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	if !h.manager.IsAuthenticated() {
		writeError(w, ErrNotAuthenticated)
		return
	}

	orders, err := h.manager.UserOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}

	core.OK(w, OrdersResponse{Orders: orders})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, err error) {
	k, ok := lookupKind(err)
	if !ok {
		core.InternalServerError(w, err)
		return
	}

	core.JSONError(w, core.NewAppError(err, k.err.Error(), k.status, k.kind))
}
