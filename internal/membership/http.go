// Package membership probes an external chat-platform roster to decide
// whether a user belongs to the allowed group.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Roster statuses that count as membership.
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// HTTPChecker calls a getChatMember-style endpoint. Latency is bounded by
// the caller's context; any transport or API error is returned so the
// caller can fail closed.
type HTTPChecker struct {
	baseURL string
	client  *http.Client
}

func NewHTTPChecker(baseURL string, client *http.Client) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{baseURL: baseURL, client: client}
}

type chatMemberResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		Status string `json:"status"`
	} `json:"result"`
}

func (c *HTTPChecker) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := url.Values{}
	query.Set("chat_id", strconv.FormatInt(groupID, 10))
	query.Set("user_id", strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getChatMember?"+query.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("build roster request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("roster request: %w", err)
	}
	defer resp.Body.Close()

	var body chatMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode roster response: %w", err)
	}
	if !body.OK {
		// The platform reports "user not found in chat" as an API error.
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
			return false, nil
		}
		return false, fmt.Errorf("roster error: %s", body.Description)
	}
	return memberStatuses[body.Result.Status], nil
}
