package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/logger"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// Provider error codes the client gives special treatment.
const (
	codeKeyNotFound       = 10009
	codeNamespaceNotFound = 10013
)

// Error is a structured failure reported by the store itself, as opposed to a
// transport or decoding failure.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("store error %d: %s", e.Code, e.Message)
}

// Client is a typed facade over the key-value store's REST API. It performs
// single-shot calls with no internal retry; callers decide whether a failure
// is fatal to the current request.
type Client struct {
	// BaseURL is the API root. Tests point it at a local server.
	BaseURL string

	http      *http.Client
	token     string
	accountID string
}

// New creates a client for the given account using a bearer token.
func New(token, accountID string) *Client {
	return &Client{
		BaseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 10 * time.Second},
		token:     token,
		accountID: accountID,
	}
}

// envelope is the provider's response wrapper. The no-result shape carries
// only the success flag and error list; the result shape adds a payload. Both
// normalize the same way: success with an empty error list is the only Ok
// case.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []Error         `json:"errors"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// firstError returns the provider's leading error, or nil for the Ok case.
func (e *envelope) firstError() *Error {
	if e.Success && len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) > 0 {
		err := e.Errors[0]
		return &err
	}
	return &Error{Message: "store reported failure without an error entry"}
}

// Read fetches the value at key and unmarshals it into v. A "key not found"
// response is not an error: it reports (false, nil) so callers can treat the
// absent value as normal empty state.
func (c *Client) Read(ctx context.Context, namespaceID, key string, v any) (bool, error) {
	endpoint := fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s/values/%s",
		c.BaseURL, c.accountID, namespaceID, url.PathEscape(key))
	body, status, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	if status == http.StatusOK {
		if err := json.Unmarshal(body, v); err != nil {
			return false, fmt.Errorf("decode value at %q: %w", key, err)
		}
		return true, nil
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return false, err
	}
	if apiErr := env.firstError(); apiErr != nil {
		if apiErr.Code == codeKeyNotFound {
			return false, nil
		}
		return false, apiErr
	}
	return false, fmt.Errorf("unexpected status %d reading %q", status, key)
}

// Write replaces the value at key. The previous value, if any, is not merged.
func (c *Client) Write(ctx context.Context, namespaceID, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode value for %q: %w", key, err)
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s/values/%s",
		c.BaseURL, c.accountID, namespaceID, url.PathEscape(key))
	body, _, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return err
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}
	if apiErr := env.firstError(); apiErr != nil {
		return apiErr
	}
	return nil
}

// namespaceResult is the payload returned by namespace creation.
type namespaceResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CreateNamespace creates a fresh bucket and returns its id.
func (c *Client) CreateNamespace(ctx context.Context, title string) (string, error) {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return "", fmt.Errorf("encode namespace title: %w", err)
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces", c.BaseURL, c.accountID)
	body, _, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return "", err
	}
	if apiErr := env.firstError(); apiErr != nil {
		return "", apiErr
	}
	var result namespaceResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return "", fmt.Errorf("decode created namespace: %w", err)
	}
	return result.ID, nil
}

// DeleteNamespace removes a bucket. Deleting a namespace that does not exist
// succeeds, so season rotation can always delete-then-create.
func (c *Client) DeleteNamespace(ctx context.Context, namespaceID string) error {
	endpoint := fmt.Sprintf("%s/accounts/%s/storage/kv/namespaces/%s",
		c.BaseURL, c.accountID, namespaceID)
	body, _, err := c.do(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	env, err := decodeEnvelope(body)
	if err != nil {
		return err
	}
	if apiErr := env.firstError(); apiErr != nil {
		if apiErr.Code == codeNamespaceNotFound {
			logger.Infof("Namespace %s already gone, treating delete as success", namespaceID)
			return nil
		}
		return apiErr
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response of %s %s: %w", method, endpoint, err)
	}
	return body, resp.StatusCode, nil
}

func decodeEnvelope(body []byte) (*envelope, error) {
	env := &envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("decode store response: %w", err)
	}
	return env, nil
}
