/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the customer-account ledger engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates everything else to
  the account service.

ENDPOINTS:
  Customers:
    GET    /api/customers                     List customer accounts
    POST   /api/customers                     Register customer account
    GET    /api/customers/{id}                Account with derived caches
    POST   /api/customers/{id}/transactions   Post a transaction
    GET    /api/customers/{id}/ledger         Windowed, paginated ledger view
    GET    /api/customers/{id}/dues           Per-type cylinder dues

  Transactions:
    POST   /api/transactions/{id}/void        Undo (POSTED -> VOIDED)

  Admin:
    POST   /api/admin/reconcile               Derived-cache drift sweep
    POST   /api/admin/customers/{id}/repair   Rebuild one customer's caches

ERROR HANDLING:
  Errors map to JSON with an HTTP status:
  - 400: validation errors, invalid input
  - 404: missing customer/transaction
  - 409: already voided, inventory rejection, concurrent modification
  - 500: internal errors, replay inconsistency

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amintahir16/lpg-gas-app-sub000/account"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *account.Service
}

// NewHandler creates a handler backed by the given account service.
func NewHandler(service *account.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customer accounts.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer registers a new customer account.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Service.CreateCustomer(r.Context(), ledger.CustomerID(req.ID), req.Name)
	if err != nil {
		if errors.Is(err, ledger.ErrCustomerExists) {
			writeError(w, http.StatusConflict, "Customer already exists", err)
			return
		}
		writeDomainError(w, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(*c))
}

// GetCustomer returns one account with its derived balance and dues.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))

	c, err := h.Service.GetCustomer(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(*c))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// PostTransaction posts a transaction to a customer's ledger.
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	customerID := ledger.CustomerID(chi.URLParam(r, "id"))

	var req PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input := account.PostInput{
		CustomerID:    customerID,
		Type:          ledger.TransactionType(req.Type),
		PaymentStatus: ledger.PaymentStatus(req.PaymentStatus),
	}
	if req.BusinessDate != "" {
		d, err := time.Parse("2006-01-02", req.BusinessDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid business_date format (use YYYY-MM-DD)", err)
			return
		}
		input.BusinessDate = d
	}
	input.Items = make([]ledger.TransactionItem, len(req.Items))
	for i, item := range req.Items {
		input.Items[i] = fromItemDTO(item)
	}
	input.TotalAmount = toMoneyPtr(req.TotalAmount)
	input.PaidAmount = toMoneyPtr(req.PaidAmount)

	result, err := h.Service.PostTransaction(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to post transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, PostTransactionResponse{
		TransactionID: string(result.TransactionID),
		BalanceImpact: result.BalanceImpact.Float64(),
		NewNetBalance: displayedBalance(result.NewRunningBalance),
		DueCounts:     result.DueCounts.Clone(),
		Warnings:      warningStrings(result.Warnings),
	})
}

// VoidTransaction undoes a posted transaction.
func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req VoidTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.UndoTransaction(r.Context(), id, req.VoidedBy, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to void transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, VoidTransactionResponse{
		TransactionID:         string(result.TransactionID),
		ReversedBalanceImpact: result.ReversedBalanceImpact.Float64(),
		NewNetBalance:         displayedBalance(result.NewRunningBalance),
		DueCounts:             result.UpdatedDueCounts.Clone(),
	})
}

// =============================================================================
// LEDGER VIEW HANDLERS
// =============================================================================

// GetLedger returns one page of a windowed ledger view.
// Query params: start_date, end_date (YYYY-MM-DD), page, limit.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	customerID := ledger.CustomerID(chi.URLParam(r, "id"))

	q := account.LedgerQuery{Page: 1, Limit: 20}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
		q.StartDate = &d
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
			return
		}
		q.EndDate = &d
	}

	page, err := h.Service.GetLedger(r.Context(), customerID, q)
	if err != nil {
		writeDomainError(w, "Failed to compute ledger", err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerResponse(page))
}

// GetCylinderDues returns the per-type outstanding cylinder counts.
func (h *Handler) GetCylinderDues(w http.ResponseWriter, r *http.Request) {
	customerID := ledger.CustomerID(chi.URLParam(r, "id"))

	dues, err := h.Service.GetCylinderDues(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, "Failed to compute cylinder dues", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id": string(customerID),
		"dues":        dues.Clone(),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reconcile sweeps all customers for derived-cache drift.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconcileResponse(report))
}

// RepairCustomer rebuilds one customer's derived caches from replay.
func (h *Handler) RepairCustomer(w http.ResponseWriter, r *http.Request) {
	id := ledger.CustomerID(chi.URLParam(r, "id"))

	if err := h.Service.RepairCustomer(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to repair customer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer_id": string(id), "status": "repaired"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	code := ""
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
		code = "validation_error"
	case ledger.IsNotFound(err):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, ledger.ErrAlreadyVoided):
		status = http.StatusConflict
		code = "already_voided"
	case errors.Is(err, ledger.ErrInsufficientInventory):
		status = http.StatusConflict
		code = "insufficient_inventory"
	case errors.Is(err, ledger.ErrInventoryReversalFailed):
		status = http.StatusConflict
		code = "inventory_reversal_failed"
	case ledger.IsRetryable(err):
		status = http.StatusConflict
		code = "concurrent_modification"
	case errors.Is(err, ledger.ErrReplayInconsistency):
		code = "replay_inconsistency"
	}

	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func warningStrings(warnings []ledger.OverReturnWarning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
