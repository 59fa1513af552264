package quark

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AccountNickname fetches the logged-in account's display name.
// An empty data object means the session cookie is stale; the caller
// should direct the user back to the external credential provider.
func (c *Client) AccountNickname(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("fr", "pc")
	q.Set("platform", "pc")

	raw, err := c.doJSON(ctx, http.MethodGet, c.accountBase, "/account/info", q, nil)
	if err != nil {
		return "", err
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Nickname string `json:"nickname"`
		} `json:"data"`
	}

	if err := decodeEnvelope(raw, "/account/info", &env); err != nil {
		return "", err
	}

	if env.Data.Nickname == "" {
		return "", fmt.Errorf("quark: session cookie rejected: %w", ErrLoginRequired)
	}

	return env.Data.Nickname, nil
}
