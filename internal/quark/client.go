package quark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Service endpoints. Save-task submission goes through a different host
// than the rest of the drive API; this mirrors the wire protocol, not a
// preference.
const (
	defaultDriveBaseURL   = "https://drive-pc.quark.cn/1/clouddrive"
	defaultSaveBaseURL    = "https://drive.quark.cn/1/clouddrive"
	defaultAccountBaseURL = "https://pan.quark.cn"
)

// requestTimeout is deliberately generous: the service is known to be
// slow under load. Policy constant, not derived.
const requestTimeout = 60 * time.Second

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/94.0.4606.71 Safari/537.36 Core/1.94.225.400 QQBrowser/12.2.5544.400"
	webOrigin = "https://pan.quark.cn"
)

// CredentialSource provides the opaque session cookie. Defined at the
// consumer per Go convention "accept interfaces, return structs"; the
// config package provides the file-backed implementation.
type CredentialSource interface {
	Cookie() (string, error)
}

// Client is an HTTP client for the Quark drive API. It handles request
// construction, identity headers, and per-endpoint envelope decoding.
type Client struct {
	driveBase   string
	saveBase    string
	accountBase string
	httpClient  *http.Client
	creds       CredentialSource
	logger      *slog.Logger

	// sleepFunc is called between task polls and for publish pacing.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error

	// nowFunc feeds the __t request disambiguator. Injectable for tests.
	nowFunc func() time.Time
}

// NewClient creates a drive API client. A nil httpClient gets the
// fixed 60s timeout the service requires.
func NewClient(creds CredentialSource, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		driveBase:   defaultDriveBaseURL,
		saveBase:    defaultSaveBaseURL,
		accountBase: defaultAccountBaseURL,
		httpClient:  httpClient,
		creds:       creds,
		logger:      logger,
		sleepFunc:   timeSleep,
		nowFunc:     time.Now,
	}
}

// commonQuery returns the identity query parameters every drive request
// carries: the client fingerprint and the per-request disambiguators
// the server uses for anti-replay.
func (c *Client) commonQuery() url.Values {
	q := url.Values{}
	q.Set("pr", "ucpro")
	q.Set("fr", "pc")
	q.Set("uc_param_str", "")
	q.Set("__dt", strconv.Itoa(100+rand.IntN(9900))) //nolint:gosec // disambiguator, not a secret
	q.Set("__t", strconv.FormatInt(c.nowFunc().UnixMilli(), 10))

	return q
}

// doJSON executes one request and returns the raw response body.
// Success or failure of the *operation* is decided by the caller from
// envelope fields, never from the transport status alone; anything that
// prevents reading a body is an ErrTransport.
func (c *Client) doJSON(ctx context.Context, method, base, path string, query url.Values, body any) ([]byte, error) {
	var reqBody io.Reader

	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("quark: marshaling %s request: %w", path, err)
		}

		reqBody = bytes.NewReader(raw)
	}

	fullURL := base + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("quark: creating request: %w", err)
	}

	if err := c.setIdentityHeaders(req); err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("quark: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("quark: %s %s: %v: %w", method, path, err, ErrTransport)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("quark: reading %s response: %v: %w", path, err, ErrTransport)
	}

	c.logger.Debug("request complete",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_bytes", len(raw)),
	)

	return raw, nil
}

// setIdentityHeaders applies the fixed identity header set: client
// fingerprint, web origin, and the session cookie.
func (c *Client) setIdentityHeaders(req *http.Request) error {
	cookie, err := c.creds.Cookie()
	if err != nil {
		return fmt.Errorf("quark: obtaining session cookie: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", webOrigin)
	req.Header.Set("Referer", webOrigin+"/")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	req.Header.Set("Cookie", cookie)

	return nil
}

// decodeEnvelope unmarshals a response body into the given envelope
// struct, mapping parse failures to ErrTransport (a non-2xx with no
// parseable body is a transport failure, not an application one).
func decodeEnvelope(raw []byte, path string, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("quark: decoding %s envelope: %v: %w", path, err, ErrTransport)
	}

	return nil
}

// timeSleep waits for the given duration or until the context is
// canceled. It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
