package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// TrainingRequester enqueues a training run and returns its event id.
type TrainingRequester interface {
	RequestTraining(ctx context.Context, requestedBy, reason string) (string, error)
}

// ModelInfoProvider reports the model currently served.
type ModelInfoProvider interface {
	Info() ranking.ModelInfo
}

// RankingHandler exposes the learned ranker's lifecycle.
type RankingHandler struct {
	trainer TrainingRequester
	models  ModelInfoProvider
}

func NewRankingHandler(trainer TrainingRequester, models ModelInfoProvider) *RankingHandler {
	return &RankingHandler{trainer: trainer, models: models}
}

type trainRequest struct {
	RequestedBy string `json:"requested_by" validate:"max=128"`
	Reason      string `json:"reason" validate:"max=512"`
}

// TrainAccepted is the 202 body of a training request.
type TrainAccepted struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Train handles POST /api/v1/ranking/train. The body is optional.
func (h *RankingHandler) Train(w http.ResponseWriter, r *http.Request) {
	if h.trainer == nil {
		writeAppError(w, errors.New(errors.ErrCodeServiceUnavailable, "training queue is not configured"))
		return
	}
	var req trainRequest
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			writeAppError(w, errors.Wrap(err, errors.ErrCodeValidation, "malformed JSON body"))
			return
		}
	}
	if err := validateRequest(req); err != nil {
		writeAppError(w, err)
		return
	}
	if req.RequestedBy == "" {
		req.RequestedBy = "api"
	}

	id, err := h.trainer.RequestTraining(r.Context(), req.RequestedBy, req.Reason)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, TrainAccepted{EventID: id, Status: "queued"})
}

// Model handles GET /api/v1/ranking/model.
func (h *RankingHandler) Model(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		writeJSON(w, http.StatusOK, ranking.ModelInfo{Source: "none"})
		return
	}
	writeJSON(w, http.StatusOK, h.models.Info())
}

//Personal.AI order the ending
