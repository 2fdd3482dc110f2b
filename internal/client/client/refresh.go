package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// refreshTokens exchanges the stored refresh token for a new access token.
// It bypasses the request pipeline so a 401 here never re-enters the
// coordinator.
func (c *HTTPClient) refreshTokens(ctx context.Context) (tokenPair, error) {
	rt, err := c.store.RefreshToken(ctx)
	if err != nil {
		return tokenPair{}, fmt.Errorf("read refresh token: %w", err)
	}
	if rt == "" {
		return tokenPair{}, ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: rt})
	if err != nil {
		return tokenPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(c.refreshPath), bytes.NewReader(body))
	if err != nil {
		return tokenPair{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return tokenPair{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenPair{}, fmt.Errorf("%w: read refresh response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tokenPair{}, &HTTPError{
			Method:     http.MethodPost,
			Path:       c.refreshPath,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       raw,
		}
	}

	var out refreshResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return tokenPair{}, fmt.Errorf("%w: decode refresh response: %w", ErrRefreshFailed, err)
	}
	if out.Token == "" {
		return tokenPair{}, fmt.Errorf("%w: response has no token", ErrRefreshFailed)
	}
	return tokenPair{access: out.Token, refresh: out.RefreshToken}, nil
}
