// Package account serves the JWT-cookie-gated account surface: balance and
// payment history reads, plan upgrade/downgrade/cancel, and the on-chain
// payment endpoint. Authentication itself is an external collaborator --
// handlers only ever read the Identity already attached to the request
// context by that middleware.
package account

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/shamank/rpc-gateway/internal/adapters/database"
	"github.com/shamank/rpc-gateway/internal/domain"
	"github.com/shamank/rpc-gateway/internal/domain/ports"
	"github.com/shamank/rpc-gateway/internal/services/payment"
	"github.com/shamank/rpc-gateway/internal/services/subscription"
)

const (
	defaultPerPage = 25
	maxPerPage     = 100
)

// Handler serves the account endpoints. Each method is registered directly
// as a net/http.HandlerFunc; there is no shared router abstraction since the
// whole surface is six small handlers.
type Handler struct {
	verifier *payment.Verifier
	engine   *subscription.Engine
	queries  database.Querier
	identity ports.IdentityResolver
	logger   *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(verifier *payment.Verifier, engine *subscription.Engine, queries database.Querier, identity ports.IdentityResolver, logger *zap.Logger) *Handler {
	return &Handler{verifier: verifier, engine: engine, queries: queries, identity: identity, logger: logger}
}

func (h *Handler) identityFromRequest(w http.ResponseWriter, r *http.Request) (*ports.Identity, bool) {
	id, ok := h.identity.Identity(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return nil, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError converts a domain error to its mapped HTTP status at the
// boundary, the only place this conversion happens.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	ge, ok := domain.AsGatewayError(err)
	if !ok {
		h.logger.Error("unmapped account handler error", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.logger.Warn("account request rejected", zap.String("kind", ge.Kind.String()), zap.Error(err))
	h.writeJSON(w, ge.StatusCode(), map[string]string{"error": ge.Message})
}

// Balances handles GET /api/balances, returning the caller's current call
// count and USD-cent balance from a single join query.
type balancesResponse struct {
	Calls   int64 `json:"calls"`
	Balance int64 `json:"balance"`
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}

	balance, calls, err := h.queries.GetBalanceAndCalls(r.Context(), id.Email)
	if err != nil {
		h.writeError(w, domain.ErrDatabaseError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, balancesResponse{Calls: calls, Balance: balance})
}

// Payments handles GET /api/payments?page=&per_page=, listing the caller's
// payment history ordered newest first.
type paymentResponse struct {
	Email    string `json:"customeremail"`
	TxHash   string `json:"transactionhash"`
	Asset    string `json:"asset"`
	Amount   string `json:"amount"`
	Chain    string `json:"chain"`
	Date     int64  `json:"date"`
	UsdCents int64  `json:"usdvalue"`
	Decimals uint8  `json:"decimals"`
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}

	page, perPage := parsePagination(r)

	rows, err := h.queries.ListPayments(r.Context(), id.Email, perPage, page)
	if err != nil {
		h.writeError(w, domain.ErrDatabaseError(err))
		return
	}

	out := make([]paymentResponse, len(rows))
	for i, p := range rows {
		out[i] = paymentResponse{
			Email:    p.Email,
			TxHash:   p.TxHash,
			Asset:    p.Asset.String(),
			Amount:   p.RawAmount,
			Chain:    p.Chain.String(),
			Date:     p.Date.Unix(),
			UsdCents: p.UsdCents,
			Decimals: p.Decimals,
		}
	}

	h.writeJSON(w, http.StatusOK, out)
}

// parsePagination reads page/per_page query params, defaulting per_page and
// clamping it to maxPerPage. Matches the original offset/limit pairing:
// per_page is the LIMIT, page is the OFFSET directly (not page*per_page).
func parsePagination(r *http.Request) (offset, limit int) {
	q := r.URL.Query()

	limit = defaultPerPage
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 0 {
		offset = v
	}
	return offset, limit
}

// Cancel handles POST /api/cancel, scheduling a downgrade to Free on the
// next cycle rollover.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.engine.Cancel(r.Context(), id.Email); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "plan scheduled to cancel at next cycle"})
}

type planRequest struct {
	Plan string `json:"plan"`
}

// Upgrade handles POST /api/upgrade, moving the caller to a strictly higher
// plan and deducting the difference in monthly cost immediately.
func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "malformed request body", err))
		return
	}

	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "unrecognized plan", err))
		return
	}

	if err := h.engine.Upgrade(r.Context(), id.Email, plan); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "plan upgraded"})
}

// Downgrade handles POST /api/downgrade, scheduling a downgrade to take
// effect on the next cycle rollover.
func (h *Handler) Downgrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "malformed request body", err))
		return
	}

	plan, err := domain.ParsePlan(req.Plan)
	if err != nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "unrecognized plan", err))
		return
	}

	if err := h.engine.Downgrade(r.Context(), id.Email, plan); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "plan downgrade scheduled"})
}

// ethereumPaymentRequest is the body of POST /api/pay/eth.
type ethereumPaymentRequest struct {
	Chain string  `json:"chain"`
	Hash  string  `json:"hash"`
	Plan  *string `json:"plan,omitempty"`
}

// PayEth handles POST /api/pay/eth: verifies an on-chain stablecoin
// transfer the caller claims paid the treasury and credits their balance,
// activating plan in the same step if the payment covers its cost outright.
func (h *Handler) PayEth(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identityFromRequest(w, r)
	if !ok {
		return
	}
	if id.Wallet == nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "account has no wallet bound", nil))
		return
	}

	var req ethereumPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "malformed request body", err))
		return
	}

	var plan *domain.Plan
	if req.Plan != nil {
		p, err := domain.ParsePlan(*req.Plan)
		if err != nil {
			h.writeError(w, domain.NewGatewayError(domain.KindDestinationError, "unrecognized plan", err))
			return
		}
		plan = &p
	}

	cents, err := h.verifier.VerifyAndCredit(r.Context(), id.Email, *id.Wallet, req.Chain, req.Hash, plan)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"credited_cents": cents})
}
