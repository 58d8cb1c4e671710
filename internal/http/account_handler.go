package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/lodging-scheduler/internal/application"
)

type accountService interface {
	CreateAccount(ctx context.Context, params application.CreateAccountParams) (application.Account, error)
	GetAccount(ctx context.Context, principal application.Principal, accountID string) (application.Account, error)
	ListAccounts(ctx context.Context, principal application.Principal) ([]application.Account, error)
}

// AccountHandler manages staff and guest accounts.
type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeDecodeError(r.Context(), w, err)
		return
	}

	account, err := h.service.CreateAccount(r.Context(), application.CreateAccountParams{
		Principal: principal,
		Input: application.AccountInput{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Role:        req.Role,
			Password:    req.Password,
			Disabled:    req.Disabled,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "principal_id", principal.AccountID, "account_id", account.ID).InfoContext(r.Context(), "account created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	account, err := h.service.GetAccount(r.Context(), principal, mux.Vars(r)["accountID"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	accounts, err := h.service.ListAccounts(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]accountDTO, len(accounts))
	for i, account := range accounts {
		out[i] = toAccountDTO(account)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResponse[accountDTO]{Items: out})
}

type accountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=120"`
	Role        string `json:"role" validate:"required,oneof=staff guest"`
	Password    string `json:"password" validate:"required,min=8"`
	Disabled    bool   `json:"disabled"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
