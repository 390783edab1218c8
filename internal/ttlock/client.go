// Package ttlock talks to the TTLock cloud API and keeps the local lock
// and gateway inventory in step with it.
package ttlock

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lockmaster/lockmaster-server/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
	maxRetries     = 4
	baseDelay      = time.Second
	maxDelay       = 30 * time.Second
	jitterFactor   = 0.1
)

// VendorError is a TTLock API-level failure (HTTP 200 with an errcode)
type VendorError struct {
	Code int    `json:"errcode"`
	Msg  string `json:"errmsg"`
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("ttlock api error %d: %s", e.Code, e.Msg)
}

// VendorLock is a lock record as the TTLock cloud reports it
type VendorLock struct {
	LockID           int64  `json:"lockId"`
	LockName         string `json:"lockName"`
	LockAlias        string `json:"lockAlias"`
	LockMAC          string `json:"lockMac"`
	ElectricQuantity int    `json:"electricQuantity"`
	FirmwareRevision string `json:"firmwareRevision"`
	HasGateway       int    `json:"hasGateway"`
	Date             int64  `json:"date"`
}

// DisplayName prefers the user-assigned alias over the factory name
func (l *VendorLock) DisplayName() string {
	if l.LockAlias != "" {
		return l.LockAlias
	}
	return l.LockName
}

// VendorGateway is a gateway record as the TTLock cloud reports it
type VendorGateway struct {
	GatewayID   int64  `json:"gatewayId"`
	GatewayMAC  string `json:"gatewayMac"`
	GatewayName string `json:"gatewayName"`
	NetworkName string `json:"networkName"`
	IsOnline    int    `json:"isOnline"`
	LockNum     int    `json:"lockNum"`
}

type pagedLocks struct {
	List     []VendorLock `json:"list"`
	PageNo   int          `json:"pageNo"`
	Pages    int          `json:"pages"`
	Total    int          `json:"total"`
	PageSize int          `json:"pageSize"`
}

type pagedGateways struct {
	List     []VendorGateway `json:"list"`
	PageNo   int             `json:"pageNo"`
	Pages    int             `json:"pages"`
	Total    int             `json:"total"`
	PageSize int             `json:"pageSize"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	UID          int64  `json:"uid"`
}

// Client is an authenticated TTLock cloud API client. Tokens are cached
// and renewed transparently; all methods are safe for concurrent use.
type Client struct {
	cfg        *config.TTLockConfig
	httpClient *http.Client
	logger     zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a TTLock cloud API client
func NewClient(cfg *config.TTLockConfig, logger zerolog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With().Str("component", "ttlock").Logger(),
	}
}

// Enabled reports whether cloud sync is configured
func (c *Client) Enabled() bool {
	return c.cfg.ClientID != ""
}

// token returns a valid access token, authenticating if the cached one
// expired. The password is sent as a lowercase MD5 digest per the API.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	sum := md5.Sum([]byte(c.cfg.Password))
	form := url.Values{
		"clientId":     {c.cfg.ClientID},
		"clientSecret": {c.cfg.ClientSecret},
		"username":     {c.cfg.Username},
		"password":     {hex.EncodeToString(sum[:])},
	}

	var tok tokenResponse
	if err := c.postForm(ctx, "/oauth2/token", form, &tok); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}

	if tok.AccessToken == "" {
		return "", fmt.Errorf("authenticate: empty access token")
	}

	c.accessToken = tok.AccessToken
	// Renew a minute early so in-flight requests never race the expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)

	c.logger.Debug().Time("expiry", c.tokenExpiry).Msg("obtained access token")
	return c.accessToken, nil
}

// ListLocks fetches the full lock inventory, walking all pages
func (c *Client) ListLocks(ctx context.Context) ([]VendorLock, error) {
	var all []VendorLock

	for pageNo := 1; ; pageNo++ {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		params := url.Values{
			"clientId":    {c.cfg.ClientID},
			"accessToken": {token},
			"pageNo":      {strconv.Itoa(pageNo)},
			"pageSize":    {strconv.Itoa(c.cfg.PageSize)},
			"date":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		}

		var page pagedLocks
		if err := c.get(ctx, "/v3/lock/list", params, &page); err != nil {
			return nil, fmt.Errorf("list locks page %d: %w", pageNo, err)
		}

		all = append(all, page.List...)
		if pageNo >= page.Pages || len(page.List) == 0 {
			break
		}
	}

	return all, nil
}

// ListGateways fetches the full gateway inventory, walking all pages
func (c *Client) ListGateways(ctx context.Context) ([]VendorGateway, error) {
	var all []VendorGateway

	for pageNo := 1; ; pageNo++ {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		params := url.Values{
			"clientId":    {c.cfg.ClientID},
			"accessToken": {token},
			"pageNo":      {strconv.Itoa(pageNo)},
			"pageSize":    {strconv.Itoa(c.cfg.PageSize)},
			"date":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		}

		var page pagedGateways
		if err := c.get(ctx, "/v3/gateway/list", params, &page); err != nil {
			return nil, fmt.Errorf("list gateways page %d: %w", pageNo, err)
		}

		all = append(all, page.List...)
		if pageNo >= page.Pages || len(page.List) == 0 {
			break
		}
	}

	return all, nil
}

// get performs a GET request with retries and decodes the JSON response
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.doRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			strings.TrimSuffix(c.cfg.BaseURL, "/")+path+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		return c.send(req, out)
	})
}

// postForm performs a form-encoded POST with retries
func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	return c.doRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimSuffix(c.cfg.BaseURL, "/")+path, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.send(req, out)
	})
}

// send executes a request and decodes the body. The API signals errors
// with an errcode in an HTTP 200 body, so both layers are checked.
func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &httpError{status: resp.StatusCode, body: string(body)}
	}

	var vendorErr VendorError
	if err := json.Unmarshal(body, &vendorErr); err == nil && vendorErr.Code != 0 {
		return &vendorErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.status, e.body)
}

// doRetry runs fn with exponential backoff and jitter. Vendor errors and
// client-side HTTP errors are terminal; network and 5xx failures retry.
func (c *Client) doRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt)
			c.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("retrying request")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

func shouldRetry(err error) bool {
	switch e := err.(type) {
	case *VendorError:
		return false
	case *httpError:
		return e.status == http.StatusTooManyRequests || e.status >= 500
	default:
		// Network-level failures are worth retrying
		return true
	}
}

func retryDelay(attempt int) time.Duration {
	delay := float64(baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	jitter := delay * jitterFactor * (rand.Float64()*2 - 1)
	delay += jitter

	if delay < float64(baseDelay) {
		delay = float64(baseDelay)
	}

	return time.Duration(delay)
}
