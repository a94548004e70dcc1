// Package tuya reads the power-present state of a Tuya smart plug through
// the Tuya OpenAPI cloud.
package tuya

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// switchCode is the datapoint carrying the plug's on/off state. The plug is
// wired so that "on" means mains power is present.
const switchCode = "switch_1"

// ErrSwitchNotFound is returned when the device status carries no switch_1
// datapoint.
var ErrSwitchNotFound = errors.New("tuya: switch_1 datapoint not found")

// tokenSkew refreshes the access token slightly before it expires.
const tokenSkew = time.Minute

// Client is a minimal Tuya OpenAPI client scoped to a single device.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	deviceID string
	client   *http.Client
	now      func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a Tuya client.
func NewClient(baseURL, clientID, secret, deviceID string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("tuya: empty endpoint")
	}
	if clientID == "" || secret == "" {
		return nil, errors.New("tuya: empty credentials")
	}
	if deviceID == "" {
		return nil, errors.New("tuya: empty device id")
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		deviceID: deviceID,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type statusItem struct {
	Code  string          `json:"code"`
	Value json.RawMessage `json:"value"`
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

type tokenResult struct {
	AccessToken string `json:"access_token"`
	ExpireTime  int64  `json:"expire_time"` // seconds
}

// Read returns the instantaneous power-present state of the plug.
func (c *Client) Read(ctx context.Context) (bool, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return false, err
	}

	path := "/v1.0/devices/" + c.deviceID + "/status"
	var items []statusItem
	if err := c.doSigned(ctx, token, path, &items); err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Code != switchCode {
			continue
		}
		var on bool
		if err := json.Unmarshal(item.Value, &on); err != nil {
			return false, fmt.Errorf("tuya: decode %s value: %w", switchCode, err)
		}
		return on, nil
	}
	return false, ErrSwitchNotFound
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-tokenSkew)) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	var result tokenResult
	if err := c.doSigned(ctx, "", "/v1.0/token?grant_type=1", &result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", errors.New("tuya: token response missing access_token")
	}

	c.mu.Lock()
	c.accessToken = result.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(result.ExpireTime) * time.Second)
	token := c.accessToken
	c.mu.Unlock()
	return token, nil
}

// doSigned performs a signed GET and decodes the envelope's result field.
// An empty token signs a token-management request.
func (c *Client) doSigned(ctx context.Context, token, pathWithQuery string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathWithQuery, nil)
	if err != nil {
		return err
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	nonce := newNonce()
	req.Header.Set("client_id", c.clientID)
	req.Header.Set("t", ts)
	req.Header.Set("nonce", nonce)
	req.Header.Set("sign_method", "HMAC-SHA256")
	req.Header.Set("sign", c.sign(token, ts, nonce, http.MethodGet, pathWithQuery, nil))
	if token != "" {
		req.Header.Set("access_token", token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tuya: request %s: %w", pathWithQuery, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tuya: request %s: unexpected status %d", pathWithQuery, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("tuya: decode response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("tuya: api error code=%d msg=%s", envelope.Code, envelope.Msg)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("tuya: decode result: %w", err)
		}
	}
	return nil
}

// sign computes the Tuya OpenAPI v2 request signature:
// HMAC-SHA256(clientID + accessToken + t + nonce + stringToSign, secret),
// uppercase hex, where stringToSign is method, body SHA256 and path.
func (c *Client) sign(token, ts, nonce, method, pathWithQuery string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	stringToSign := method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + pathWithQuery

	mac := hmac.New(sha256.New, []byte(c.secret))
	_, _ = io.WriteString(mac, c.clientID+token+ts+nonce+stringToSign)
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func newNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
