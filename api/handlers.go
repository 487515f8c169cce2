/*
handlers.go - HTTP handlers for the cashback ledger

PURPOSE:
  Exposes the command surface over REST. The chat transport posts each
  inbound message to /api/messages and sends the rendered reply back to
  the user; the remaining endpoints are back-office reads over the
  directory and the raw operation log.

ENDPOINTS:
  POST /api/messages                One chat message in, one reply out
  GET  /api/clients                 Directory listing
  GET  /api/clients/count           Client count
  GET  /api/clients/{id}/balance    Balance read (0 for unknown)
  GET  /api/clients/{id}/operations Client's audit trail
  GET  /api/operations?limit=N      Newest operations first

ERROR HANDLING:
  Ledger rejections map to HTTP status:
  - 400: invalid/out-of-range amounts, malformed input
  - 403: non-admin attempted an admin command
  - 422: insufficient balance, redeem cap exceeded
  - 503: storage unavailable (retryable)
  - 500: anything unrecognized

SECURITY NOTE:
  Admin authorization lives in the ledger engine (single configured chat
  identity) and is enforced on the command path. The back-office read
  endpoints carry no authentication; front them with the deployment's
  reverse proxy.

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/homequeen/cashback-ledger/bot"
	"github.com/homequeen/cashback-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Router *bot.Router
	Ops    ledger.OperationLister // nil if the store cannot list operations
	Log    zerolog.Logger
}

// NewHandler creates a handler over the engine and chat router.
// store is probed for operation listing support.
func NewHandler(engine *ledger.Engine, router *bot.Router, store ledger.Store, log zerolog.Logger) *Handler {
	h := &Handler{Engine: engine, Router: router, Log: log}
	if ops, ok := store.(ledger.OperationLister); ok {
		h.Ops = ops
	}
	return h
}

// =============================================================================
// MESSAGE HANDLER - The chat webhook
// =============================================================================

// PostMessage routes one chat message through the command router.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Identity == 0 {
		writeError(w, http.StatusBadRequest, "Missing identity", nil)
		return
	}

	reply := h.Router.Handle(r.Context(), ledger.ClientID(req.Identity), req.Text)
	writeJSON(w, http.StatusOK, MessageResponse{Text: reply.Text, Buttons: reply.Buttons})
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListClients returns the directory.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Engine.Directory().List(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CountClients returns the number of known clients.
func (h *Handler) CountClients(w http.ResponseWriter, r *http.Request) {
	count, err := h.Engine.Directory().Count(r.Context())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountDTO{Count: count})
}

// GetBalance returns a client's balance; 0 for unknown identities.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client id", err)
		return
	}

	balance, err := h.Engine.Directory().Balance(r.Context(), ledger.ClientID(id))
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{ID: id, Balance: balance.String()})
}

// =============================================================================
// OPERATION LOG HANDLERS
// =============================================================================

// ListOperations returns the newest operations first.
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	if h.Ops == nil {
		writeError(w, http.StatusNotImplemented, "Operation listing not supported by this store", nil)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	ops, err := h.Ops.ListOperations(r.Context(), limit)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationDTOs(ops))
}

// ListClientOperations returns one client's audit trail in insertion order.
func (h *Handler) ListClientOperations(w http.ResponseWriter, r *http.Request) {
	if h.Ops == nil {
		writeError(w, http.StatusNotImplemented, "Operation listing not supported by this store", nil)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client id", err)
		return
	}

	ops, err := h.Ops.ListOperationsByClient(r.Context(), ledger.ClientID(id))
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOperationDTOs(ops))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func toClientDTO(c ledger.Client) ClientDTO {
	return ClientDTO{
		ID:           int64(c.ID),
		Name:         c.Name,
		Phone:        c.Phone,
		Balance:      c.Balance.String(),
		Registered:   c.Registered(),
		RegisteredAt: c.RegisteredAt.Format("2006-01-02 15:04:05"),
	}
}

func toOperationDTOs(ops []ledger.Operation) []OperationDTO {
	dtos := make([]OperationDTO, len(ops))
	for i, op := range ops {
		dto := OperationDTO{
			At:            op.At.Format("2006-01-02 15:04:05"),
			Kind:          string(op.Kind),
			ClientID:      int64(op.ClientID),
			Name:          op.Name,
			Phone:         op.Phone,
			BalanceBefore: op.BalanceBefore.String(),
			BalanceAfter:  op.BalanceAfter.String(),
			Comment:       op.Comment,
		}
		if op.Purchase != nil {
			s := op.Purchase.String()
			dto.Purchase = &s
		}
		if op.Delta != nil {
			s := op.Delta.String()
			dto.Delta = &s
		}
		dtos[i] = dto
	}
	return dtos
}

// writeLedgerError maps ledger rejections to HTTP status codes.
func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrAmountOutOfRange):
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin only", err)
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrRedeemCapExceeded):
		writeError(w, http.StatusUnprocessableEntity, "Rejected by ledger rules", err)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		h.Log.Warn().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "Storage unavailable, retry later", err)
	default:
		h.Log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	dto := ErrorDTO{Error: msg}
	if err != nil {
		dto.Details = err.Error()
	}
	writeJSON(w, status, dto)
}
