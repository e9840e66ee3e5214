package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// Recommender produces link-prediction recommendations.
type Recommender interface {
	Recommend(ctx context.Context, company string, dir trade.RecommendDirection, topK int) (*trade.Recommendation, error)
}

// RecommendHandler serves GET /api/v1/recommendations/{company}.
type RecommendHandler struct {
	svc Recommender
}

func NewRecommendHandler(svc Recommender) *RecommendHandler {
	return &RecommendHandler{svc: svc}
}

type recommendRequest struct {
	Company   string `validate:"required,max=256"`
	Direction string `validate:"oneof=sellers buyers seller buyer"`
	TopK      int    `validate:"gte=0,lte=100"`
}

// Recommend handles ?direction=sellers|buyers&top_k=. Direction defaults
// to sellers.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	company, err := url.PathUnescape(chi.URLParam(r, "company"))
	if err != nil {
		writeAppError(w, errors.New(errors.ErrCodeValidation, "malformed company name"))
		return
	}
	topK, err := queryInt(r, "top_k")
	if err != nil {
		writeAppError(w, err)
		return
	}
	req := recommendRequest{
		Company:   strings.TrimSpace(company),
		Direction: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("direction"))),
		TopK:      topK,
	}
	if req.Direction == "" {
		req.Direction = string(trade.RecommendSellers)
	}
	if err := validateRequest(req); err != nil {
		writeAppError(w, err)
		return
	}

	rec, err := h.svc.Recommend(r.Context(), req.Company, trade.RecommendDirection(req.Direction), req.TopK)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

//Personal.AI order the ending
