package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vodgate/internal/core/domain"
	httphandlers "vodgate/internal/handlers/http"
)

var (
	errAccessDenied = errors.New("access denied")
	errNotFound     = errors.New("content not found")
)

// grant is a successful authorization as seen by a client.
type grant struct {
	SrcURL  string
	Cookies []*http.Cookie
}

// target names what to authorize and as whom.
type target struct {
	Kind    domain.ContentKind
	Request httphandlers.AuthorizeRequest
}

func (t target) path() string {
	if t.Kind == domain.KindLivestreaming {
		return "/api/v1/livestreamings/authorize"
	}
	return "/api/v1/videos/authorize"
}

type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func newGatewayClient(baseURL string) *gatewayClient {
	return &gatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *gatewayClient) authorize(ctx context.Context, t target) (*grant, error) {
	body, err := json.Marshal(t.Request)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+t.path(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, errAccessDenied
	case http.StatusNotFound:
		return nil, errNotFound
	default:
		return nil, fmt.Errorf("gateway returned %s", resp.Status)
	}

	var out httphandlers.AuthorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	if out.SrcURL == "" {
		return nil, errors.New("gateway response has no srcUrl")
	}
	return &grant{SrcURL: out.SrcURL, Cookies: resp.Cookies()}, nil
}
