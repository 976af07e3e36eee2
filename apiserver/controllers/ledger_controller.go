package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Crypto1-dev/CaciaCC/apiserver/services"
	"github.com/Crypto1-dev/CaciaCC/core"
)

// LedgerController provides the HTTP handlers for the submission endpoint:
// GET /chain, GET /balance/{address}, POST /tx (aliased as /send).
type LedgerController struct {
	svc *services.LedgerService
}

// NewLedgerController constructs a LedgerController over svc.
func NewLedgerController(svc *services.LedgerService) *LedgerController {
	return &LedgerController{svc: svc}
}

// Chain handles GET /chain, returning the current block list as JSON.
func (c *LedgerController) Chain(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.svc.Chain())
}

// Balance handles GET /balance/{address}, returning the address's balance
// as a bare JSON integer, per SPEC_FULL.md §6.
func (c *LedgerController) Balance(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(mux.Vars(r)["address"])
	writeJSON(w, http.StatusOK, c.svc.Balance(addr))
}

// SubmitTx handles POST /tx and POST /send: decodes a transaction, submits
// it to the ledger, and on acceptance triggers a broadcast. A decodable
// transaction always gets a 200 with a JSON string body; success or
// rejection is determined by the string, not the status code. A body that
// does not decode as a transaction gets a 400.
func (c *LedgerController) SubmitTx(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, "malformed transaction")
		return
	}
	if err := c.svc.SubmitTransaction(tx); err != nil {
		writeJSON(w, http.StatusOK, "Transaction rejected: "+rejectionReason(err))
		return
	}
	writeJSON(w, http.StatusOK, "Transaction accepted")
}

func rejectionReason(err error) string {
	var badNonce *core.BadNonceError
	switch {
	case errors.As(err, &badNonce):
		return badNonce.Error()
	case errors.Is(err, core.ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, core.ErrInsufficientFunds):
		return "insufficient funds"
	default:
		return "rejected"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
