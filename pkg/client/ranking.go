package client

import (
	"context"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
)

// RankingClient triggers training and inspects the served model.
type RankingClient struct {
	client *Client
}

// TrainResponse is the 202 body of a training request.
type TrainResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Train enqueues a training run.
func (c *RankingClient) Train(ctx context.Context, requestedBy, reason string) (*TrainResponse, error) {
	body := map[string]string{"requested_by": requestedBy, "reason": reason}
	var res TrainResponse
	if err := c.client.post(ctx, "/api/v1/ranking/train", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Model reports the model the server is using.
func (c *RankingClient) Model(ctx context.Context) (*ranking.ModelInfo, error) {
	var res ranking.ModelInfo
	if err := c.client.get(ctx, "/api/v1/ranking/model", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

//Personal.AI order the ending
