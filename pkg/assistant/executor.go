package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roomops/pms-console/pkg/conversation"
)

type executeRequest struct {
	Action    *conversation.ActionDescriptor `json:"action"`
	Confirmed bool                           `json:"confirmed"`
}

type executeResponse struct {
	Success     *bool                          `json:"success,omitempty"`
	Message     string                         `json:"message,omitempty"`
	QueryResult *conversation.StructuredResult `json:"query_result,omitempty"`
}

// Execute sends a fully-resolved action to the execution endpoint. It
// implements conversation.Executor. An omitted success flag counts as
// success; only an explicit false is a rejection.
func (c *Client) Execute(ctx context.Context, action *conversation.ActionDescriptor, confirmed bool) (*conversation.ExecuteResult, error) {
	body, err := c.post(ctx, c.config.ExecutionURL, executeRequest{
		Action:    action,
		Confirmed: confirmed,
	})
	if err != nil {
		return nil, err
	}

	var resp executeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error decoding execution response: %w", err)
	}

	return &conversation.ExecuteResult{
		Success:     resp.Success == nil || *resp.Success,
		Message:     resp.Message,
		QueryResult: resp.QueryResult,
	}, nil
}
