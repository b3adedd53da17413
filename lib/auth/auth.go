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

// Package auth turns OAuth browser-login callbacks into API credentials,
// refreshes access tokens against the signed token endpoints and opens
// authenticated sessions.
//
// Two login flows exist. The original password flow redirects to a URL
// whose query carries the token pair directly. The newer authorization-code
// flow redirects with a one-time code, the account's user number and the
// URL of the token service to exchange the code at. A credential remembers
// which flow produced it and refreshes through the matching endpoint.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gravitational/trace"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/gateway"
	"github.com/sampsyo/wideq/lib/session"
	"github.com/sampsyo/wideq/lib/utils"
	logutils "github.com/sampsyo/wideq/lib/utils/log"
)

var log = logutils.NewPackageLogger(wideq.ComponentKey, wideq.ComponentAuth)

const (
	// legacyTokenPath is the token endpoint for password-flow credentials.
	legacyTokenPath = "/oauth2/token"

	// tokenPath is the token endpoint for authorization-code credentials.
	tokenPath = "/oauth/1.0/oauth2/token"
)

// Auth holds one user's OAuth credential set. Values are immutable;
// Refresh returns a new Auth rather than mutating in place. The JSON tags
// are part of the persisted client state format.
type Auth struct {
	// AccessToken authorizes API calls until the server expires it.
	AccessToken string `json:"access_token"`
	// RefreshToken obtains new access tokens. It survives refreshes and
	// only changes when the user logs in again.
	RefreshToken string `json:"refresh_token"`
	// UserNumber is the account number reported by the
	// authorization-code flow. Empty for password-flow credentials, and
	// the marker distinguishing the two refresh endpoints.
	UserNumber string `json:"user_number,omitempty"`
	// OAuthRoot is the token service this credential refreshes against.
	OAuthRoot string `json:"oauth_root,omitempty"`
}

// FromCallbackURL builds a credential from the URL the browser login
// redirected to. Both flow shapes are accepted; some login pages deliver
// the parameters in the URL fragment instead of the query, which is
// tolerated.
func FromCallbackURL(ctx context.Context, clt *core.Transport, gw *gateway.Gateway, callbackURL string) (*Auth, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, trace.BadParameter("could not parse callback URL: %v", err)
	}
	params := u.Query()
	if len(params) == 0 && u.Fragment != "" {
		if fragParams, err := url.ParseQuery(u.Fragment); err == nil {
			params = fragParams
		}
	}

	switch {
	case params.Get("access_token") != "":
		refresh := params.Get("refresh_token")
		if refresh == "" {
			return nil, trace.BadParameter("callback URL carries an access token but no refresh token")
		}
		return &Auth{
			AccessToken:  params.Get("access_token"),
			RefreshToken: refresh,
			OAuthRoot:    gw.OAuthRoot,
		}, nil

	case params.Get("code") != "":
		oauthRoot := params.Get("oauth2_backend_url")
		if oauthRoot == "" {
			oauthRoot = gw.OAuthRoot
		}
		userNumber := params.Get("user_number")
		if userNumber == "" {
			return nil, trace.BadParameter("callback URL carries a code but no user number")
		}
		access, refresh, err := exchangeCode(ctx, clt, oauthRoot, params.Get("code"))
		if err != nil {
			return nil, trace.Wrap(err)
		}
		return &Auth{
			AccessToken:  access,
			RefreshToken: refresh,
			UserNumber:   userNumber,
			OAuthRoot:    oauthRoot,
		}, nil

	default:
		return nil, trace.BadParameter("callback URL carries neither tokens nor an authorization code")
	}
}

// FromToken builds a credential from a stored refresh token, then performs
// an immediate refresh to obtain a working access token.
func FromToken(ctx context.Context, clt *core.Transport, gw *gateway.Gateway, refreshToken, userNumber string) (*Auth, error) {
	a := &Auth{
		RefreshToken: refreshToken,
		UserNumber:   userNumber,
		OAuthRoot:    gw.OAuthRoot,
	}
	out, err := a.Refresh(ctx, clt)
	return out, trace.Wrap(err)
}

// Refresh obtains a fresh access token and returns a new Auth carrying it.
// The refresh token is preserved.
func (a *Auth) Refresh(ctx context.Context, clt *core.Transport) (*Auth, error) {
	if a.OAuthRoot == "" {
		return nil, trace.BadParameter("credential has no token service URL")
	}
	if a.RefreshToken == "" {
		return nil, trace.BadParameter("credential has no refresh token")
	}

	var access string
	var err error
	if a.UserNumber != "" {
		access, err = refreshV2(ctx, clt, a.OAuthRoot, a.RefreshToken)
	} else {
		access, err = refreshLegacy(ctx, clt, a.OAuthRoot, a.RefreshToken)
	}
	if err != nil {
		return nil, trace.Wrap(err)
	}
	log.DebugContext(ctx, "Refreshed access token", "oauth_root", a.OAuthRoot)

	out := *a
	out.AccessToken = access
	return &out, nil
}

// StartSession opens an authenticated API session. Password-flow
// credentials log into the original API and receive a server-side session
// plus the initial device list the login response carries.
// Authorization-code credentials need no server session: they get a bare
// session and a nil device list, with devices read from the dashboard
// afterwards.
func (a *Auth) StartSession(ctx context.Context, clt *core.Transport, gw *gateway.Gateway) (*session.Session, []session.DeviceInfo, error) {
	if a.UserNumber != "" {
		sess, err := session.New(session.Config{
			Transport:   clt,
			Gateway:     gw,
			AccessToken: a.AccessToken,
			UserNumber:  a.UserNumber,
		})
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		return sess, nil, nil
	}

	data, err := clt.Post(ctx, utils.JoinURL(gw.APIRoot, "member/login"), map[string]any{
		"countryCode": gw.Country,
		"langCode":    gw.Language,
		"loginType":   "EMP",
		"token":       a.AccessToken,
	}, core.RequestOptions{Envelope: core.EnvelopeLGEDM})
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}
	sessionID := utils.StringField(data, "jsessionId")
	if sessionID == "" {
		return nil, nil, trace.BadParameter("login response carries no session identifier")
	}

	sess, err := session.New(session.Config{
		Transport:   clt,
		Gateway:     gw,
		AccessToken: a.AccessToken,
		SessionID:   sessionID,
	})
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}

	items := utils.AsList(data, "item")
	devices := make([]session.DeviceInfo, 0, len(items))
	for _, item := range items {
		info, err := session.ParseDeviceInfo(item)
		if err != nil {
			return nil, nil, trace.Wrap(err)
		}
		devices = append(devices, info)
	}
	return sess, devices, nil
}

// exchangeCode trades an authorization code for a token pair.
func exchangeCode(ctx context.Context, clt *core.Transport, oauthRoot, code string) (access, refresh string, err error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", wideq.OAuthRedirectURI)

	body, err := signedTokenRequest(ctx, clt, oauthRoot, form)
	if err != nil {
		return "", "", trace.Wrap(err)
	}
	access = utils.StringField(body, "access_token")
	refresh = utils.StringField(body, "refresh_token")
	if access == "" || refresh == "" {
		return "", "", trace.Wrap(&core.TokenError{Reason: "token endpoint returned no token pair"})
	}
	return access, refresh, nil
}

// refreshV2 refreshes an authorization-code credential.
func refreshV2(ctx context.Context, clt *core.Transport, oauthRoot, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	body, err := signedTokenRequest(ctx, clt, oauthRoot, form)
	if err != nil {
		return "", trace.Wrap(err)
	}
	access := utils.StringField(body, "access_token")
	if access == "" {
		return "", trace.Wrap(&core.TokenError{Reason: "token endpoint returned no access token"})
	}
	return access, nil
}

// signedTokenRequest posts a signed form to the authorization-code token
// endpoint. This endpoint reports failure through the HTTP status line.
func signedTokenRequest(ctx context.Context, clt *core.Transport, oauthRoot string, form url.Values) (map[string]any, error) {
	timestamp := core.OAuthTimestamp(time.Now())
	message := core.SignatureMessage(tokenPath+"?"+form.Encode(), timestamp)

	headers := http.Header{}
	headers.Set("x-lge-appkey", wideq.OAuthClientKey)
	headers.Set("x-lge-oauth-signature", core.Sign(message, wideq.OAuthSecretKey))
	headers.Set("x-lge-oauth-date", timestamp)
	headers.Set("Accept", "application/json")

	status, body, err := clt.PostForm(ctx, utils.JoinURL(oauthRoot, tokenPath), form, headers)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if status != http.StatusOK {
		return nil, trace.Wrap(&core.TokenError{Reason: fmt.Sprintf("token endpoint returned HTTP %v", status)})
	}
	return body, nil
}

// refreshLegacy refreshes a password-flow credential. The signature covers
// the raw token concatenation rather than the form-encoded body, and
// failure is reported through a status flag in the response body rather
// than the HTTP status line.
func refreshLegacy(ctx context.Context, clt *core.Transport, oauthRoot, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	timestamp := core.OAuthTimestamp(time.Now())
	message := core.SignatureMessage(
		legacyTokenPath+"?grant_type=refresh_token&refresh_token="+refreshToken,
		timestamp,
	)

	headers := http.Header{}
	headers.Set("lgemp-x-app-key", wideq.OAuthClientKey)
	headers.Set("lgemp-x-signature", core.Sign(message, wideq.OAuthSecretKey))
	headers.Set("lgemp-x-date", timestamp)
	headers.Set("Accept", "application/json")

	_, body, err := clt.PostForm(ctx, utils.JoinURL(oauthRoot, legacyTokenPath), form, headers)
	if err != nil {
		return "", trace.Wrap(err)
	}
	if status, ok := body["status"].(float64); !ok || status != 1 {
		return "", trace.Wrap(&core.TokenError{Reason: fmt.Sprintf("token endpoint reported status %v", body["status"])})
	}
	access := utils.StringField(body, "access_token")
	if access == "" {
		return "", trace.Wrap(&core.TokenError{Reason: "token endpoint returned no access token"})
	}
	return access, nil
}
