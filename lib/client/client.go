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

// Package client is the high-level entry point of the library. A Client
// walks the three steps every caller needs (endpoint discovery,
// credentials, an authenticated session) lazily, caches model schemas,
// and serializes the whole lot to a State so the next run can skip
// straight to making calls.
package client

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"

	"github.com/gravitational/trace"
	"golang.org/x/sync/singleflight"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/auth"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/defaults"
	"github.com/sampsyo/wideq/lib/gateway"
	"github.com/sampsyo/wideq/lib/model"
	"github.com/sampsyo/wideq/lib/session"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentClient)

var (
	countryPattern  = regexp.MustCompile(`^[A-Z]{2,3}$`)
	languagePattern = regexp.MustCompile(`^[a-z]{2,3}-[A-Z]{2,3}$`)
)

// Config configures a Client.
type Config struct {
	// Country is the account's country code, like "US".
	Country string
	// Language is the account's language code, like "en-US".
	Language string
	// GatewayURL is the discovery endpoint queried when no gateway is
	// known yet.
	GatewayURL string
	// Transport issues the HTTP calls. A default transport is built
	// when nil.
	Transport *core.Transport
}

// CheckAndSetDefaults checks and sets defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Country == "" {
		c.Country = defaults.Country
	}
	if c.Language == "" {
		c.Language = defaults.Language
	}
	if !countryPattern.MatchString(c.Country) {
		return trace.BadParameter("country code %q does not match %v", c.Country, countryPattern)
	}
	if !languagePattern.MatchString(c.Language) {
		return trace.BadParameter("language code %q does not match %v", c.Language, languagePattern)
	}
	if c.GatewayURL == "" {
		c.GatewayURL = defaults.GatewayURL
	}
	if c.Transport == nil {
		transport, err := core.NewTransport(core.Config{})
		if err != nil {
			return trace.Wrap(err)
		}
		c.Transport = transport
	}
	return nil
}

// Client ties discovery, credentials, the session and the model schema
// cache together. All methods are safe for concurrent use; credentials
// and the session are replaced wholesale on refresh, so calls already in
// flight finish against the tokens they started with.
type Client struct {
	cfg Config

	// mu guards the identity chain: gateway, auth, session, devices.
	mu      sync.Mutex
	gateway *gateway.Gateway
	auth    *auth.Auth
	session *session.Session
	devices []session.DeviceInfo

	// modelMu guards modelRaw; modelGroup collapses concurrent fetches
	// of the same schema URL.
	modelMu    sync.RWMutex
	modelRaw   map[string][]byte
	modelGroup singleflight.Group
}

// New returns an unauthenticated Client. Callers either Load persisted
// state instead, or follow New with the browser login flow.
func New(cfg Config) (*Client, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Client{
		cfg:      cfg,
		modelRaw: make(map[string][]byte),
	}, nil
}

// Load restores a Client from persisted state. Locale codes passed in
// cfg take precedence over persisted ones. Unusable parts of the state
// are dropped rather than failing the load; they get re-created on first
// use.
func Load(cfg Config, state *State) (*Client, error) {
	if cfg.Country == "" {
		cfg.Country = state.Country
	}
	if cfg.Language == "" {
		cfg.Language = state.Language
	}
	c, err := New(cfg)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.gateway = state.Gateway
	c.auth = state.Auth
	if c.gateway != nil && c.auth != nil {
		sess, err := session.New(session.Config{
			Transport:   c.cfg.Transport,
			Gateway:     c.gateway,
			AccessToken: c.auth.AccessToken,
			SessionID:   state.SessionID,
			UserNumber:  c.auth.UserNumber,
		})
		if err != nil {
			log.Debug("Dropping unusable persisted session", "error", err)
		} else {
			c.session = sess
		}
	}
	for url, raw := range state.Model {
		c.modelRaw[url] = []byte(raw)
	}
	return c, nil
}

// FromToken builds a Client from nothing but a refresh token, running
// discovery and an immediate token refresh. This suits hand-written
// configuration at the cost of a couple of extra calls on startup. Pass
// the account's user number for authorization-code credentials, or empty
// for password-flow ones.
func FromToken(ctx context.Context, cfg Config, refreshToken, userNumber string) (*Client, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	gw, err := c.Gateway(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	a, err := auth.FromToken(ctx, c.cfg.Transport, gw, refreshToken, userNumber)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.mu.Lock()
	c.auth = a
	c.mu.Unlock()
	return c, nil
}

// Authenticated reports whether the client holds credentials.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth != nil
}

// Dump snapshots the client into a serializable State.
func (c *Client) Dump() *State {
	c.mu.Lock()
	state := &State{
		Gateway:  c.gateway,
		Auth:     c.auth,
		Country:  c.cfg.Country,
		Language: c.cfg.Language,
	}
	if c.session != nil {
		state.SessionID = c.session.ID()
	}
	c.mu.Unlock()

	c.modelMu.RLock()
	if len(c.modelRaw) != 0 {
		state.Model = make(map[string]json.RawMessage, len(c.modelRaw))
		for url, raw := range c.modelRaw {
			state.Model[url] = json.RawMessage(raw)
		}
	}
	c.modelMu.RUnlock()
	return state
}

// Gateway returns the discovered endpoint set, running discovery on
// first use.
func (c *Client) Gateway(ctx context.Context) (*gateway.Gateway, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gatewayLocked(ctx)
}

func (c *Client) gatewayLocked(ctx context.Context) (*gateway.Gateway, error) {
	if c.gateway != nil {
		return c.gateway, nil
	}
	gw, err := gateway.Discover(ctx, c.cfg.Transport, c.cfg.GatewayURL, c.cfg.Country, c.cfg.Language)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.gateway = gw
	return gw, nil
}

// AuthFromCallbackURL completes the browser login flow with the URL the
// login page redirected to, replacing any previous credentials and
// session.
func (c *Client) AuthFromCallbackURL(ctx context.Context, callbackURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	gw, err := c.gatewayLocked(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	a, err := auth.FromCallbackURL(ctx, c.cfg.Transport, gw, callbackURL)
	if err != nil {
		return trace.Wrap(err)
	}
	c.auth = a
	c.session = nil
	c.devices = nil
	return nil
}

// Session returns the authenticated session, logging in on first use.
func (c *Client) Session(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked(ctx)
}

func (c *Client) sessionLocked(ctx context.Context) (*session.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	if c.auth == nil {
		return nil, trace.NotFound("no credentials are stored; complete the login flow first")
	}
	gw, err := c.gatewayLocked(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	sess, devices, err := c.auth.StartSession(ctx, c.cfg.Transport, gw)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.session = sess
	if len(devices) != 0 {
		c.devices = devices
	}
	return sess, nil
}

// Devices returns the devices registered to the account. The list is
// cached; Refresh forces a new login and with it a fresh list.
func (c *Client) Devices(ctx context.Context) ([]session.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.devices != nil {
		return c.devices, nil
	}
	sess, err := c.sessionLocked(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	devices, err := sess.GetDevices(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.devices = devices
	return devices, nil
}

// GetDevice looks a device up by its identifier.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (session.DeviceInfo, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return session.DeviceInfo{}, trace.Wrap(err)
	}
	for _, device := range devices {
		if device.ID == deviceID {
			return device, nil
		}
	}
	return session.DeviceInfo{}, trace.NotFound("no device with id %q", deviceID)
}

// ModelInfo returns the parsed capability schema for a device. Raw
// schema documents are cached per URL and survive in the persisted
// state, so each model is fetched at most once across runs.
func (c *Client) ModelInfo(ctx context.Context, device session.DeviceInfo) (*model.ModelInfo, error) {
	url := device.ModelInfoURL
	if url == "" {
		return nil, trace.BadParameter("device %v reports no model schema URL", device.ID)
	}

	c.modelMu.RLock()
	raw, ok := c.modelRaw[url]
	c.modelMu.RUnlock()
	if !ok {
		out, err, _ := c.modelGroup.Do(url, func() (any, error) {
			c.modelMu.RLock()
			cached, ok := c.modelRaw[url]
			c.modelMu.RUnlock()
			if ok {
				return cached, nil
			}
			log.Debug("Fetching model schema", "device_id", device.ID, "url", url)
			fetched, err := c.cfg.Transport.GetRaw(ctx, url)
			if err != nil {
				return nil, trace.Wrap(err)
			}
			c.modelMu.Lock()
			c.modelRaw[url] = fetched
			c.modelMu.Unlock()
			return fetched, nil
		})
		if err != nil {
			return nil, trace.Wrap(err)
		}
		raw = out.([]byte)
	}

	info, err := model.Parse(raw)
	return info, trace.Wrap(err)
}

// Refresh rotates the access token and starts a fresh session.
// Concurrent refreshes serialize; later API calls pick up the new
// session.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return trace.NotFound("no credentials are stored; complete the login flow first")
	}
	refreshed, err := c.auth.Refresh(ctx, c.cfg.Transport)
	if err != nil {
		return trace.Wrap(err)
	}
	gw, err := c.gatewayLocked(ctx)
	if err != nil {
		return trace.Wrap(err)
	}
	sess, devices, err := refreshed.StartSession(ctx, c.cfg.Transport, gw)
	if err != nil {
		return trace.Wrap(err)
	}
	c.auth = refreshed
	c.session = sess
	c.devices = devices
	log.Debug("Refreshed access token and session")
	return nil
}
