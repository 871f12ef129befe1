package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	moderation "github.com/heibot/moderation"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// NewHTTPClient returns an http.Client with the given timeout, or a
// 30 second default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// PostJSON posts reqBody as JSON to url and decodes the reply into respBody.
// Transport failures map to the network and timeout sentinels, non-2xx
// statuses to a ProviderError, and undecodable bodies to ErrMalformedResponse.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %v", moderation.ErrTimeout, provider, err)
		}
		return moderation.WrapNetworkError(fmt.Errorf("%s request failed: %w", provider, err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return moderation.WrapNetworkError(fmt.Errorf("failed to read %s response: %w", provider, err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return moderation.NewProviderError(provider, http.StatusText(httpResp.StatusCode), msg).
			WithStatusCode(httpResp.StatusCode)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: %s", moderation.ErrEmptyResponse, provider)
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("%w: %s: %v", moderation.ErrMalformedResponse, provider, err)
	}
	return nil
}
