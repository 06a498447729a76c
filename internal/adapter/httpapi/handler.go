// Package httpapi is the boundary consumed by the terminal front-end. It
// owns input parsing: amounts reach the engine only as validated whole
// integers, and every domain error surfaces as a distinct status + code.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
	"github.com/cashpoint/cashpoint-backend/internal/receipt"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/engine"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/session"
)

const appTitle = "Cashpoint ATM"

// Handler serves the terminal API.
type Handler struct {
	sessions *session.Controller
	engine   *engine.Engine
	receipts *receipt.Writer
	log      *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(sessions *session.Controller, eng *engine.Engine, receipts *receipt.Writer, log *zap.Logger) *Handler {
	return &Handler{sessions: sessions, engine: eng, receipts: receipts, log: log}
}

type loginRequest struct {
	Card string `json:"card"`
	PIN  string `json:"pin"`
}

type accountSummary struct {
	DisplayName   string `json:"display_name"`
	AccountNumber string `json:"account_number"`
}

type amountRequest struct {
	Amount  json.Number `json:"amount"`
	Receipt bool        `json:"receipt"`
}

type transferRequest struct {
	To      string      `json:"to"`
	Amount  json.Number `json:"amount"`
	Receipt bool        `json:"receipt"`
}

type changePINRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type operationResponse struct {
	Balance     string                    `json:"balance"`
	Record      *domain.TransactionRecord `json:"record,omitempty"`
	ReceiptFile string                    `json:"receipt_file,omitempty"`
}

// Login opens a session for the given card and PIN.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	if err := h.sessions.Login(r.Context(), req.Card, req.PIN); err != nil {
		h.respondError(w, err)
		return
	}
	a, err := h.engine.Account(r.Context(), req.Card)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accountSummary{DisplayName: a.DisplayName, AccountNumber: a.AccountNumber})
}

// Logout closes the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the authenticated account summary.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	a, err := h.currentAccount(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accountSummary{DisplayName: a.DisplayName, AccountNumber: a.AccountNumber})
}

// Balance returns the available balance, optionally exporting a receipt
// when ?receipt=true.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	a, err := h.currentAccount(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := operationResponse{Balance: a.Balance.String()}
	if r.URL.Query().Get("receipt") == "true" {
		lines := []string{
			appTitle + " — Balance Receipt",
			"Date: " + time.Now().Format("2006-01-02 15:04:05"),
			"Name: " + a.DisplayName,
			"Account: " + a.AccountNumber,
			"Available Balance: " + a.Balance.String(),
		}
		if resp.ReceiptFile, err = h.receipts.Write("balance_receipt", lines); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Withdraw dispenses cash from the authenticated account.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current()
	if !ok {
		h.respondError(w, domain.ErrNotAuthenticated)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	rec, err := h.engine.Withdraw(r.Context(), id, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := operationResponse{Balance: rec.BalanceAfter.String(), Record: &rec}
	if req.Receipt {
		if resp.ReceiptFile, err = h.writeOperationReceipt(r.Context(), "withdraw_receipt", "Withdrawal", id, rec); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Deposit credits cash to the authenticated account.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current()
	if !ok {
		h.respondError(w, domain.ErrNotAuthenticated)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	rec, err := h.engine.Deposit(r.Context(), id, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := operationResponse{Balance: rec.BalanceAfter.String(), Record: &rec}
	if req.Receipt {
		if resp.ReceiptFile, err = h.writeOperationReceipt(r.Context(), "deposit_receipt", "Deposit", id, rec); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Transfer moves funds from the authenticated account to another card.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current()
	if !ok {
		h.respondError(w, domain.ErrNotAuthenticated)
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.engine.Transfer(r.Context(), id, req.To, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := operationResponse{Balance: result.Out.BalanceAfter.String(), Record: &result.Out}
	if req.Receipt {
		src, err := h.engine.Account(r.Context(), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		dst, err := h.engine.Account(r.Context(), req.To)
		if err != nil {
			h.respondError(w, err)
			return
		}
		lines := []string{
			appTitle + " — Transfer Receipt",
			"Date: " + time.Now().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("From: %s (%s)", src.DisplayName, src.AccountNumber),
			fmt.Sprintf("To:   %s (%s)", dst.DisplayName, dst.AccountNumber),
			"Amount: " + result.Out.Amount.String(),
			"Your New Balance: " + result.Out.BalanceAfter.String(),
		}
		if resp.ReceiptFile, err = h.receipts.Write("transfer_receipt", lines); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type statementResponse struct {
	Records     []domain.TransactionRecord `json:"records"`
	ReceiptFile string                     `json:"receipt_file,omitempty"`
}

// Statement returns the most recent records, newest first. ?limit=n
// overrides the default of 10; ?receipt=true exports a mini statement.
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current()
	if !ok {
		h.respondError(w, domain.ErrNotAuthenticated)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer", Code: "bad_request"})
			return
		}
		limit = n
	}
	records, err := h.engine.Statement(r.Context(), id, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := statementResponse{Records: records}
	if r.URL.Query().Get("receipt") == "true" {
		a, err := h.engine.Account(r.Context(), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		lines := []string{
			appTitle + " — Mini Statement",
			"Date: " + time.Now().Format("2006-01-02 15:04:05"),
			"Name: " + a.DisplayName,
			"Account: " + a.AccountNumber,
			"",
		}
		for _, rec := range records {
			line := fmt.Sprintf("%s  %-14s %12s  Bal: %s",
				rec.Time.Format("2006-01-02 15:04:05"), rec.Kind, rec.Amount.String(), rec.BalanceAfter.String())
			if rec.Counterparty != "" {
				line += " (" + rec.Counterparty + ")"
			}
			lines = append(lines, line)
		}
		if resp.ReceiptFile, err = h.receipts.Write("mini_statement", lines); err != nil {
			h.respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// ChangePIN rotates the authenticated account's PIN.
func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessions.Current()
	if !ok {
		h.respondError(w, domain.ErrNotAuthenticated)
		return
	}
	var req changePINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: "bad_request"})
		return
	}
	if err := h.engine.ChangeSecret(r.Context(), id, req.Old, req.New); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentAccount(r *http.Request) (domain.Account, error) {
	id, ok := h.sessions.Current()
	if !ok {
		return domain.Account{}, domain.ErrNotAuthenticated
	}
	return h.engine.Account(r.Context(), id)
}

func (h *Handler) writeOperationReceipt(ctx context.Context, title, label, id string, rec domain.TransactionRecord) (string, error) {
	a, err := h.engine.Account(ctx, id)
	if err != nil {
		return "", err
	}
	lines := []string{
		fmt.Sprintf("%s — %s Receipt", appTitle, label),
		"Date: " + time.Now().Format("2006-01-02 15:04:05"),
		"Name: " + a.DisplayName,
		"Account: " + a.AccountNumber,
		"Amount: " + rec.Amount.String(),
		"Balance: " + rec.BalanceAfter.String(),
	}
	return h.receipts.Write(title, lines)
}

// parseAmount accepts only whole-number amounts; fractional or non-numeric
// input is rejected here so it never reaches the engine.
func parseAmount(n json.Number) (int64, error) {
	amount, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: enter a whole number amount", domain.ErrInvalidAmount)
	}
	return amount, nil
}
