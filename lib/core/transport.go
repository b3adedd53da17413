/*
 * wideq
 * Copyright (C) 2026  wideq contributors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package core implements the low-level request layer of the client: the
// enveloped HTTP transport with retry and return-code handling, the OAuth
// request signature, and the error taxonomy shared by every layer above.
package core

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/defaults"
	"github.com/sampsyo/wideq/lib/utils"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentTransport)

// Config configures a Transport.
type Config struct {
	// HTTPClient issues the requests. A plain client is built when unset;
	// per-attempt timeouts come from Timeout, not the client.
	HTTPClient *http.Client
	// Timeout bounds a single request attempt.
	Timeout time.Duration
	// RetryAttempts is the total number of tries for one request,
	// counting the first.
	RetryAttempts int
	// RetryBase is the backoff after the first failed attempt; it doubles
	// on every further failure.
	RetryBase time.Duration
	// RetryMax caps the backoff between attempts.
	RetryMax time.Duration
	// LegacyTLSHosts lists hostnames (without port) still served behind
	// TLS 1.0. Requests to them go through a client that permits the old
	// protocol versions. Certificate verification stays on; there is no
	// way to disable it.
	LegacyTLSHosts []string
	// Clock overrides time in tests.
	Clock clockwork.Clock
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Timeout == 0 {
		c.Timeout = defaults.HTTPRequestTimeout
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = defaults.HTTPRetryAttempts
	}
	if c.RetryAttempts < 1 {
		return trace.BadParameter("RetryAttempts must be at least 1")
	}
	if c.RetryBase == 0 {
		c.RetryBase = defaults.HTTPRetryBase
	}
	if c.RetryMax == 0 {
		c.RetryMax = defaults.HTTPRetryMax
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	return nil
}

// Transport issues requests in the wrapped-JSON formats the API servers
// speak, with retry, per-attempt timeouts and return-code checking.
// Methods are safe for concurrent use.
type Transport struct {
	cfg         Config
	legacyTLS   *http.Client
	legacyHosts map[string]bool
}

// NewTransport builds a Transport from cfg.
func NewTransport(cfg Config) (*Transport, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	t := &Transport{
		cfg:         cfg,
		legacyHosts: make(map[string]bool, len(cfg.LegacyTLSHosts)),
	}
	for _, host := range cfg.LegacyTLSHosts {
		t.legacyHosts[host] = true
	}
	if len(cfg.LegacyTLSHosts) > 0 {
		t.legacyTLS = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					// These hosts never finished the move off TLS 1.0.
					MinVersion: tls.VersionTLS10,
					MaxVersion: tls.VersionTLS12,
				},
			},
		}
	}
	return t, nil
}

// RequestOptions carries the per-request context: the envelope format,
// credentials, and the locale labels v2 endpoints require.
type RequestOptions struct {
	// Envelope selects the wire format.
	Envelope Envelope
	// AccessToken authenticates the request when set.
	AccessToken string
	// SessionID fills the legacy session header when set.
	SessionID string
	// UserNumber fills the v2 account number header when set.
	UserNumber string
	// Country and Language label v2 requests. They default to the
	// library-wide defaults when empty.
	Country  string
	Language string
}

// Post sends body to url and returns the unwrapped response payload.
func (t *Transport) Post(ctx context.Context, url string, body map[string]any, opts RequestOptions) (map[string]any, error) {
	payload, err := json.Marshal(opts.Envelope.wrapRequest(body))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	raw, _, err := t.roundtrip(ctx, http.MethodPost, url, payload, "application/json", t.headers(opts))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	out, err := t.parse(raw, opts.Envelope)
	return out, trace.Wrap(err)
}

// Get fetches url and returns the unwrapped response payload. The v2
// endpoints use GET for discovery and dashboard reads.
func (t *Transport) Get(ctx context.Context, url string, opts RequestOptions) (map[string]any, error) {
	raw, _, err := t.roundtrip(ctx, http.MethodGet, url, nil, "", t.headers(opts))
	if err != nil {
		return nil, trace.Wrap(err)
	}
	out, err := t.parse(raw, opts.Envelope)
	return out, trace.Wrap(err)
}

// GetRaw fetches url and returns the body bytes without envelope handling.
// Model schema documents are served this way: plain JSON from a CDN with no
// wrapper and no return code.
func (t *Transport) GetRaw(ctx context.Context, url string) ([]byte, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	raw, status, err := t.roundtrip(ctx, http.MethodGet, url, nil, "", h)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if status != http.StatusOK {
		return nil, trace.ReadError(status, raw)
	}
	return raw, nil
}

// PostForm sends a form-encoded POST outside the enveloped formats; the
// OAuth token endpoints use this shape. It returns the HTTP status code
// alongside the parsed JSON body because those endpoints report failure
// through the status line rather than a return code field.
func (t *Transport) PostForm(ctx context.Context, url string, form neturl.Values, headers http.Header) (int, map[string]any, error) {
	if headers == nil {
		headers = http.Header{}
	}
	raw, status, err := t.roundtrip(ctx, http.MethodPost, url, []byte(form.Encode()), "application/x-www-form-urlencoded", headers)
	if err != nil {
		return 0, nil, trace.Wrap(err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return status, nil, trace.Wrap(&MalformedResponseError{Data: raw})
	}
	return status, body, nil
}

// headers assembles the header set for the request's envelope.
func (t *Transport) headers(opts RequestOptions) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	switch opts.Envelope {
	case EnvelopeLGEDM:
		h.Set("x-thinq-application-key", wideq.AppKey)
		h.Set("x-thinq-security-key", wideq.SecurityKey)
		if opts.AccessToken != "" {
			h.Set("x-thinq-token", opts.AccessToken)
		}
		if opts.SessionID != "" {
			h.Set("x-thinq-jsessionId", opts.SessionID)
		}
	case EnvelopeResult:
		country := opts.Country
		if country == "" {
			country = defaults.Country
		}
		language := opts.Language
		if language == "" {
			language = defaults.Language
		}
		h.Set("x-api-key", wideq.APIKey)
		h.Set("x-client-id", wideq.ClientID)
		h.Set("x-country-code", country)
		h.Set("x-language-code", language)
		h.Set("x-message-id", wideq.MessageID)
		h.Set("x-service-code", wideq.SvcCode)
		h.Set("x-service-phase", wideq.SvcPhase)
		h.Set("x-thinq-app-level", wideq.AppLevel)
		h.Set("x-thinq-app-os", wideq.AppOS)
		h.Set("x-thinq-app-type", wideq.AppType)
		h.Set("x-thinq-app-ver", wideq.AppVer)
		if opts.AccessToken != "" {
			h.Set("x-emp-token", opts.AccessToken)
		}
		if opts.UserNumber != "" {
			h.Set("x-user-no", opts.UserNumber)
		}
	}
	return h
}

// roundtrip runs the retry loop for one logical request. Only connection
// failures and HTTP 502/503/504 retry; everything else returns to the
// caller on the first attempt.
func (t *Transport) roundtrip(ctx context.Context, method, url string, body []byte, contentType string, headers http.Header) ([]byte, int, error) {
	retry, err := utils.NewExponential(utils.ExponentialConfig{
		Base:  t.cfg.RetryBase,
		Max:   t.cfg.RetryMax,
		Clock: t.cfg.Clock,
	})
	if err != nil {
		return nil, 0, trace.Wrap(err)
	}
	client := t.clientFor(url)

	var lastErr error
	for attempt := 1; attempt <= t.cfg.RetryAttempts; attempt++ {
		select {
		case <-retry.After():
		case <-ctx.Done():
			return nil, 0, trace.Wrap(ctx.Err())
		}

		raw, status, retryable, err := t.attempt(ctx, client, method, url, body, contentType, headers)
		if err == nil {
			return raw, status, nil
		}
		if !retryable {
			return nil, 0, trace.Wrap(err)
		}
		lastErr = err
		retry.Inc()
		log.DebugContext(ctx, "Retrying request",
			"url", url,
			"attempt", attempt,
			"backoff", retry.Duration(),
			"error", err,
		)
	}
	return nil, 0, trace.Wrap(lastErr)
}

// attempt performs a single HTTP exchange and classifies the outcome.
func (t *Transport) attempt(ctx context.Context, client *http.Client, method, url string, body []byte, contentType string, headers http.Header) (raw []byte, status int, retryable bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, 0, false, trace.Wrap(err)
	}
	req.Header = headers.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, true, trace.ConnectionProblem(err, "request to %v failed", url)
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, true, trace.ConnectionProblem(err, "reading response from %v failed", url)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, 0, true, trace.ConnectionProblem(nil, "server unavailable: HTTP %v from %v", resp.StatusCode, url)
	}
	return raw, resp.StatusCode, false, nil
}

// clientFor returns the HTTP client for url, routing hosts from
// LegacyTLSHosts through the downgraded-TLS client.
func (t *Transport) clientFor(rawURL string) *http.Client {
	if t.legacyTLS == nil {
		return t.cfg.HTTPClient
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return t.cfg.HTTPClient
	}
	if t.legacyHosts[u.Hostname()] {
		return t.legacyTLS
	}
	return t.cfg.HTTPClient
}

// parse decodes a response body and unwraps it from its envelope.
func (t *Transport) parse(raw []byte, envelope Envelope) (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, trace.Wrap(&MalformedResponseError{Data: raw})
	}
	out, err := envelope.unwrapResponse(raw, body)
	return out, trace.Wrap(err)
}
