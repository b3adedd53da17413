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

// Package gateway resolves the per-country service endpoints and builds the
// interactive login URL. Every other API host in the system comes from a
// discovery response, so this is always the first call a fresh client makes.
package gateway

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/utils"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentGateway)

// Gateway holds the discovered service endpoints for one country and
// language. It serializes to the client state file, so field tags are part
// of the persisted format.
type Gateway struct {
	// AuthBase is the account service base URL hosting the login pages.
	AuthBase string `json:"auth_base"`
	// APIRoot is the root of the original wrapped-JSON API.
	APIRoot string `json:"api_root"`
	// API2Root is the root of the v2 REST API, when the region has one.
	API2Root string `json:"api2_root,omitempty"`
	// OAuthRoot is the token service base URL.
	OAuthRoot string `json:"oauth_root"`
	// Country is the country code discovery ran with, like "US".
	Country string `json:"country"`
	// Language is the language code discovery ran with, like "en-US".
	Language string `json:"language"`
}

// Discover fetches the endpoint set for a country and language from the v2
// discovery service. Pass defaults.GatewayURL as discoveryURL outside of
// tests. The locale codes travel in headers on this endpoint.
func Discover(ctx context.Context, clt *core.Transport, discoveryURL, country, language string) (*Gateway, error) {
	data, err := clt.Get(ctx, discoveryURL, core.RequestOptions{
		Envelope: core.EnvelopeResult,
		Country:  country,
		Language: language,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	gw := &Gateway{
		AuthBase:  utils.StringField(data, "empUri"),
		APIRoot:   utils.StringField(data, "thinq1Uri"),
		API2Root:  utils.StringField(data, "thinq2Uri"),
		OAuthRoot: utils.StringField(data, "oauthUri"),
		Country:   country,
		Language:  language,
	}
	return checkGateway(ctx, gw)
}

// DiscoverLegacy fetches the endpoint set from the original wrapped-POST
// discovery service. Pass defaults.LegacyGatewayURL as discoveryURL outside
// of tests. The locale codes travel in the request body on this endpoint.
func DiscoverLegacy(ctx context.Context, clt *core.Transport, discoveryURL, country, language string) (*Gateway, error) {
	data, err := clt.Post(ctx, discoveryURL, map[string]any{
		"countryCode": country,
		"langCode":    language,
	}, core.RequestOptions{Envelope: core.EnvelopeLGEDM})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	gw := &Gateway{
		AuthBase:  utils.StringField(data, "empUri"),
		APIRoot:   utils.StringField(data, "thinqUri"),
		OAuthRoot: utils.StringField(data, "oauthUri"),
		Country:   country,
		Language:  language,
	}
	return checkGateway(ctx, gw)
}

// checkGateway validates a discovery result and fills the OAuth root
// fallback.
func checkGateway(ctx context.Context, gw *Gateway) (*Gateway, error) {
	if gw.AuthBase == "" {
		return nil, trace.BadParameter("discovery response is missing the account service URL (empUri)")
	}
	if gw.APIRoot == "" && gw.API2Root == "" {
		return nil, trace.BadParameter("discovery response carries no API root for country %q", gw.Country)
	}
	if gw.OAuthRoot == "" {
		gw.OAuthRoot = deriveOAuthRoot(gw.AuthBase)
	}
	log.DebugContext(ctx, "Discovered service endpoints",
		"country", gw.Country,
		"auth_base", gw.AuthBase,
		"api_root", gw.APIRoot,
		"api2_root", gw.API2Root,
		"oauth_root", gw.OAuthRoot,
	)
	return gw, nil
}

// deriveOAuthRoot builds the token service URL for regions whose discovery
// response omits oauthUri. The account service host leads with the country
// label ("us.m.lgaccount.com"), and the token service lives at the matching
// country host of lgeapi.com.
func deriveOAuthRoot(authBase string) string {
	u, err := url.Parse(authBase)
	if err != nil {
		return authBase
	}
	label, _, found := strings.Cut(u.Hostname(), ".")
	if !found {
		return authBase
	}
	return "https://" + label + ".lgeapi.com"
}

// OAuthURL returns the browser login URL for the original password flow.
// The redirect lands on a URL whose query carries the token pair directly.
func (g *Gateway) OAuthURL() string {
	q := url.Values{}
	q.Set("country", g.Country)
	q.Set("language", g.Language)
	q.Set("svcCode", wideq.SvcCode)
	q.Set("authSvr", "oauth2")
	q.Set("client_id", wideq.OAuthClientKey)
	q.Set("division", "ha")
	q.Set("grant_type", "password")
	return utils.JoinURL(g.AuthBase, "login/sign_in") + "?" + q.Encode()
}

// OAuthURLV2 returns the browser login URL for the authorization-code flow.
// The redirect lands on a URL whose query carries a one-time code to
// exchange for tokens, plus the account number and token service URL.
func (g *Gateway) OAuthURLV2() string {
	q := url.Values{}
	q.Set("country", g.Country)
	q.Set("language", g.Language)
	q.Set("svc_list", wideq.SvcCode)
	q.Set("client_id", wideq.OAuthClientKey)
	q.Set("division", "ha")
	q.Set("redirect_uri", wideq.OAuthRedirectURI)
	q.Set("state", strings.ReplaceAll(uuid.NewString(), "-", ""))
	q.Set("show_thirdparty_login", "AMZ,FBK")
	return utils.JoinURL(g.AuthBase, "spx/login/signIn") + "?" + q.Encode()
}
