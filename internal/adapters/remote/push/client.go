package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/galho-seco-gateway/internal/domain"
	"github.com/bnema/galho-seco-gateway/internal/ports"
)

const (
	CharactersPath      = "/api/v1/foundry/characters"
	maxErrorBodyBytes   = 1 << 20
	defaultPushTimeout  = 15 * time.Second
	contentTypeJSONUTF8 = "application/json"
)

// StatusError reports a non-2xx answer from the remote service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Client delivers character snapshots with the account's API key as bearer
// credential.
type Client struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var _ ports.CharacterPusher = Client{}

func (c Client) Upsert(ctx context.Context, serverAddress string, apiKey string, batch domain.UpsertBatch) error {
	body := upsertBody{Characters: make([]characterBody, 0, len(batch.Characters))}
	if batch.Username != "" {
		body.Username = batch.Username
	} else {
		body.UserID = string(batch.UserID)
	}
	for _, snapshot := range batch.Characters {
		body.Characters = append(body.Characters, toCharacterBody(snapshot))
	}

	if err := c.send(ctx, http.MethodPost, serverAddress, apiKey, body); err != nil {
		return fmt.Errorf("push characters: %w", err)
	}

	return nil
}

func (c Client) Delete(ctx context.Context, serverAddress string, apiKey string, notice domain.DeleteNotice) error {
	if err := c.send(ctx, http.MethodDelete, serverAddress, apiKey, deleteBody{Character: string(notice.Character)}); err != nil {
		return fmt.Errorf("delete character %s: %w", notice.Character, err)
	}

	return nil
}

func (c Client) send(ctx context.Context, method string, serverAddress string, apiKey string, body any) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("api key is empty: %w", domain.ErrConfigurationIncomplete)
	}

	endpoint, err := CharactersURL(serverAddress)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSONUTF8)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	return nil
}

// CharactersURL joins the configured server address with the characters
// endpoint. An address without a scheme is taken as https.
func CharactersURL(serverAddress string) (string, error) {
	address := strings.TrimSpace(serverAddress)
	if address == "" {
		return "", fmt.Errorf("server address is empty: %w", domain.ErrConfigurationIncomplete)
	}
	if !strings.Contains(address, "://") {
		address = "https://" + address
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse server address: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("server address must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("server address host is required")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + CharactersPath
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}

	return context.WithTimeout(ctx, timeout)
}
