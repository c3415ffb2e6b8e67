/*
handlers_test.go - HTTP-level tests for the ledger API

Exercises the full stack (router -> handlers -> account service -> memory
store) and, in particular, the display sign convention: every balance the
API returns is the negated internal running balance.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amintahir16/lpg-gas-app-sub000/account"
	"github.com/amintahir16/lpg-gas-app-sub000/api"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := account.NewService(store.NewTxMemory(), nil, nil)
	server := httptest.NewServer(api.NewRouter(api.NewHandler(service)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createCustomer(t *testing.T, server *httptest.Server, id string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/customers",
		map[string]any{"id": id, "name": "Test Trader"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func postSale(t *testing.T, server *httptest.Server, customerID string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/customers/%s/transactions", server.URL, customerID),
		map[string]any{
			"type": "SALE",
			"items": []map[string]any{
				{"cylinder_type": "DOMESTIC_11KG", "quantity": 5, "price_per_item": 500},
			},
			"total_amount": 2500,
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	return body["transaction_id"].(string)
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestAPI_PostSale_DisplaysNegatedBalance(t *testing.T) {
	// GIVEN: A new customer
	// WHEN: Posting an unpaid SALE of 2500
	// THEN: The impact is +2500 but the DISPLAYED net balance is -2500
	//       (customer owes); dues report the 5 cylinders

	server := newTestServer(t)
	createCustomer(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/customers/cust-1/transactions",
		map[string]any{
			"type": "SALE",
			"items": []map[string]any{
				{"cylinder_type": "DOMESTIC_11KG", "quantity": 5, "price_per_item": 500},
			},
			"total_amount": 2500,
		})

	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	assert.Equal(t, 2500.0, body["balance_impact"])
	assert.Equal(t, -2500.0, body["new_net_balance"])
	dues := body["due_counts"].(map[string]any)
	assert.Equal(t, 5.0, dues["DOMESTIC_11KG"])
}

func TestAPI_GetCustomer_DisplayConvention(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")
	postSale(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/customers/cust-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, -2500.0, body["net_balance"],
		"stored running balance +2500 must render as -2500")
}

func TestAPI_Ledger_WindowAndRows(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")
	postSale(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/customers/cust-1/ledger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	summary := body["summary"].(map[string]any)
	assert.Equal(t, -2500.0, summary["ending_net_balance"])

	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	row := txs[0].(map[string]any)
	assert.Equal(t, 2500.0, row["impact"])
	assert.Equal(t, -2500.0, row["net_balance"])

	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, 1.0, pagination["total"])
}

func TestAPI_VoidTransaction_FullFlow(t *testing.T) {
	// GIVEN: A posted sale
	// WHEN: Voiding it
	// THEN: Displayed net balance returns to 0; voiding again is a 409

	server := newTestServer(t)
	createCustomer(t, server, "cust-1")
	txID := postSale(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/transactions/%s/void", server.URL, txID),
		map[string]any{"voided_by": "admin", "reason": "entered twice"})

	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, 2500.0, body["reversed_balance_impact"])
	assert.Equal(t, 0.0, body["new_net_balance"])

	resp, body = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/transactions/%s/void", server.URL, txID),
		map[string]any{"voided_by": "admin"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_voided", body["code"])
}

func TestAPI_CylinderDues(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")
	postSale(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/customers/cust-1/dues", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dues := body["dues"].(map[string]any)
	assert.Equal(t, 5.0, dues["DOMESTIC_11KG"])
}

func TestAPI_Reconcile_Clean(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")
	postSale(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["customers"])
	assert.Empty(t, body["drifts"])
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_UnknownCustomer_404(t *testing.T) {
	server := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/customers/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestAPI_UnknownTransactionType_400(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/customers/cust-1/transactions",
		map[string]any{"type": "GIFT"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestAPI_DuplicateCustomer_409(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/customers",
		map[string]any{"id": "cust-1", "name": "Again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_BadBusinessDate_400(t *testing.T) {
	server := newTestServer(t)
	createCustomer(t, server, "cust-1")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/customers/cust-1/transactions",
		map[string]any{"type": "SALE", "business_date": "03/15/2025"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
