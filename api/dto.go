/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

SIGN CONVENTION:
  Every balance the API renders goes through displayedBalance(), which
  applies the ledger's single display negation (positive shown value =
  customer has credit). Impacts are deltas, not balances, and keep their
  internal sign.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/amintahir16/lpg-gas-app-sub000/account"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CustomerDTO represents a customer account in API responses.
type CustomerDTO struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	NetBalance float64        `json:"net_balance"`
	DueCounts  map[string]int `json:"due_counts"`
	CreatedAt  string         `json:"created_at,omitempty"`
}

// CreateCustomerRequest is the request to register a customer account.
type CreateCustomerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemDTO represents one transaction line item.
type ItemDTO struct {
	CylinderType string   `json:"cylinder_type,omitempty"`
	ProductName  string   `json:"product_name,omitempty"`
	Quantity     int      `json:"quantity"`
	PricePerItem *float64 `json:"price_per_item,omitempty"`
	TotalPrice   *float64 `json:"total_price,omitempty"`
	RemainingKg  *float64 `json:"remaining_kg,omitempty"`
	BuybackRate  *float64 `json:"buyback_rate,omitempty"`
	BuybackTotal *float64 `json:"buyback_total,omitempty"`
	Kind         string   `json:"kind,omitempty"`
}

// PostTransactionRequest is the request to post a transaction.
type PostTransactionRequest struct {
	Type          string    `json:"type"`
	BusinessDate  string    `json:"business_date,omitempty"` // YYYY-MM-DD, defaults to today
	Items         []ItemDTO `json:"items"`
	TotalAmount   *float64  `json:"total_amount,omitempty"`
	PaidAmount    *float64  `json:"paid_amount,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
}

// PostTransactionResponse reports the committed transaction.
type PostTransactionResponse struct {
	TransactionID string         `json:"transaction_id"`
	BalanceImpact float64        `json:"balance_impact"`
	NewNetBalance float64        `json:"new_net_balance"`
	DueCounts     map[string]int `json:"due_counts"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// VoidTransactionRequest is the request to undo a posted transaction.
type VoidTransactionRequest struct {
	VoidedBy string `json:"voided_by"`
	Reason   string `json:"reason,omitempty"`
}

// VoidTransactionResponse reports the reversal's effect.
type VoidTransactionResponse struct {
	TransactionID         string         `json:"transaction_id"`
	ReversedBalanceImpact float64        `json:"reversed_balance_impact"`
	NewNetBalance         float64        `json:"new_net_balance"`
	DueCounts             map[string]int `json:"due_counts"`
}

// TransactionDTO represents one ledger row.
type TransactionDTO struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	Type          string    `json:"type"`
	BusinessDate  string    `json:"business_date"`
	CreatedAt     string    `json:"created_at"`
	TotalAmount   float64   `json:"total_amount"`
	PaidAmount    *float64  `json:"paid_amount,omitempty"`
	UnpaidAmount  *float64  `json:"unpaid_amount,omitempty"`
	PaymentStatus string    `json:"payment_status"`
	Items         []ItemDTO `json:"items"`
	Voided        bool      `json:"voided"`
	VoidedBy      string    `json:"voided_by,omitempty"`
	VoidedAt      string    `json:"voided_at,omitempty"`
	VoidReason    string    `json:"void_reason,omitempty"`
	Impact        float64   `json:"impact"`
	NetBalance    float64   `json:"net_balance"` // displayed running balance after this row
}

// SummaryDTO aggregates the filtered window only, in display convention.
type SummaryDTO struct {
	NetBalance         float64 `json:"net_balance"`
	TotalIn            float64 `json:"total_in"`
	TotalOut           float64 `json:"total_out"`
	StartingNetBalance float64 `json:"starting_net_balance"`
	EndingNetBalance   float64 `json:"ending_net_balance"`
}

// PaginationDTO mirrors the engine's pagination block.
type PaginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// LedgerResponse is one page of a windowed ledger view.
type LedgerResponse struct {
	Summary      SummaryDTO       `json:"summary"`
	Transactions []TransactionDTO `json:"transactions"`
	Pagination   PaginationDTO    `json:"pagination"`
}

// DriftDTO reports one reconciliation divergence.
type DriftDTO struct {
	CustomerID      string         `json:"customer_id"`
	StoredBalance   float64        `json:"stored_net_balance"`
	ReplayedBalance float64        `json:"replayed_net_balance"`
	StoredDues      map[string]int `json:"stored_dues"`
	ReplayedDues    map[string]int `json:"replayed_dues"`
}

// ReconcileResponse summarizes a reconciliation sweep.
type ReconcileResponse struct {
	CheckedAt string     `json:"checked_at"`
	Customers int        `json:"customers"`
	Drifts    []DriftDTO `json:"drifts"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// displayedBalance is the single point where the internal running-balance
// sign flips into the customer-facing convention.
func displayedBalance(m ledger.Money) float64 {
	return ledger.Displayed(m).Float64()
}

func toCustomerDTO(c ledger.Customer) CustomerDTO {
	return CustomerDTO{
		ID:         string(c.ID),
		Name:       c.Name,
		NetBalance: displayedBalance(c.Balance),
		DueCounts:  c.DueCounts.Clone(),
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}

func toItemDTO(item ledger.TransactionItem) ItemDTO {
	dto := ItemDTO{
		CylinderType: item.CylinderType,
		ProductName:  item.ProductName,
		Quantity:     item.Quantity,
		Kind:         string(item.Kind),
	}
	dto.PricePerItem = moneyPtr(item.PricePerItem)
	dto.TotalPrice = moneyPtr(item.TotalPrice)
	dto.BuybackTotal = moneyPtr(item.BuybackTotal)
	dto.RemainingKg = decimalPtr(item.RemainingKg)
	dto.BuybackRate = decimalPtr(item.BuybackRate)
	return dto
}

func fromItemDTO(dto ItemDTO) ledger.TransactionItem {
	item := ledger.TransactionItem{
		CylinderType: dto.CylinderType,
		ProductName:  dto.ProductName,
		Quantity:     dto.Quantity,
	}
	item.PricePerItem = toMoneyPtr(dto.PricePerItem)
	item.TotalPrice = toMoneyPtr(dto.TotalPrice)
	item.BuybackTotal = toMoneyPtr(dto.BuybackTotal)
	item.RemainingKg = toDecimalPtr(dto.RemainingKg)
	item.BuybackRate = toDecimalPtr(dto.BuybackRate)
	return item
}

func toTransactionDTO(line ledger.BalanceLine) TransactionDTO {
	tx := line.Transaction
	dto := TransactionDTO{
		ID:            string(tx.ID),
		CustomerID:    string(tx.CustomerID),
		Type:          string(tx.Type),
		BusinessDate:  tx.BusinessDate.Format("2006-01-02"),
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
		TotalAmount:   tx.TotalAmount.Float64(),
		PaymentStatus: string(tx.PaymentStatus),
		Voided:        tx.Voided,
		VoidedBy:      tx.VoidedBy,
		VoidReason:    tx.VoidReason,
		Impact:        line.Impact.Float64(),
		NetBalance:    displayedBalance(line.RunningBalance),
	}
	dto.PaidAmount = moneyPtr(tx.PaidAmount)
	dto.UnpaidAmount = moneyPtr(tx.UnpaidAmount)
	if tx.VoidedAt != nil {
		dto.VoidedAt = tx.VoidedAt.Format(time.RFC3339)
	}
	dto.Items = make([]ItemDTO, len(tx.Items))
	for i, item := range tx.Items {
		dto.Items[i] = toItemDTO(item)
	}
	return dto
}

func toLedgerResponse(page *ledger.LedgerPage) LedgerResponse {
	resp := LedgerResponse{
		Summary: SummaryDTO{
			// Displayed delta: the negation distributes over the window.
			NetBalance:         ledger.Displayed(page.Summary.NetBalance).Float64(),
			TotalIn:            page.Summary.TotalIn.Float64(),
			TotalOut:           page.Summary.TotalOut.Float64(),
			StartingNetBalance: displayedBalance(page.Summary.StartingBalance),
			EndingNetBalance:   displayedBalance(page.Summary.EndingBalance),
		},
		Pagination: PaginationDTO{
			Page:  page.Pagination.Page,
			Limit: page.Pagination.Limit,
			Total: page.Pagination.Total,
			Pages: page.Pagination.Pages,
		},
	}
	resp.Transactions = make([]TransactionDTO, len(page.Lines))
	for i, line := range page.Lines {
		resp.Transactions[i] = toTransactionDTO(line)
	}
	return resp
}

func toReconcileResponse(report *account.ReconciliationReport) ReconcileResponse {
	resp := ReconcileResponse{
		CheckedAt: report.CheckedAt.Format(time.RFC3339),
		Customers: report.Customers,
		Drifts:    make([]DriftDTO, len(report.Drifts)),
	}
	for i, d := range report.Drifts {
		resp.Drifts[i] = DriftDTO{
			CustomerID:      string(d.CustomerID),
			StoredBalance:   displayedBalance(d.StoredBalance),
			ReplayedBalance: displayedBalance(d.ReplayedBalance),
			StoredDues:      d.StoredDues.Clone(),
			ReplayedDues:    d.ReplayedDues.Clone(),
		}
	}
	return resp
}

func moneyPtr(m *ledger.Money) *float64 {
	if m == nil {
		return nil
	}
	f := m.Float64()
	return &f
}

func toMoneyPtr(f *float64) *ledger.Money {
	if f == nil {
		return nil
	}
	m := ledger.NewMoney(*f)
	return &m
}

func decimalPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

func toDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
