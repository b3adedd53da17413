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

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/sampsyo/wideq"
	"github.com/sampsyo/wideq/lib/core"
	"github.com/sampsyo/wideq/lib/gateway"
)

func newTransport(t *testing.T) *core.Transport {
	t.Helper()
	clt, err := core.NewTransport(core.Config{})
	require.NoError(t, err)
	return clt
}

func testGateway(apiRoot, oauthRoot string) *gateway.Gateway {
	return &gateway.Gateway{
		AuthBase:  "https://us.m.lgaccount.com",
		APIRoot:   apiRoot,
		OAuthRoot: oauthRoot,
		Country:   "US",
		Language:  "en-US",
	}
}

// requireSignature checks that a token request carries a signature over the
// given path-with-query and the timestamp the request itself declares.
func requireSignature(t *testing.T, r *http.Request, dateHeader, sigHeader, pathWithQuery string) {
	t.Helper()
	timestamp := r.Header.Get(dateHeader)
	require.NotEmpty(t, timestamp)
	expected := core.Sign(core.SignatureMessage(pathWithQuery, timestamp), wideq.OAuthSecretKey)
	require.Equal(t, expected, r.Header.Get(sigHeader))
}

func TestFromCallbackURLLegacy(t *testing.T) {
	t.Parallel()

	gw := testGateway("https://aic.lgthinq.com:46030/api", "https://us.lgeapi.com")
	a, err := FromCallbackURL(context.Background(), newTransport(t), gw,
		"https://kr.m.lgaccount.com/login/iabClose?access_token=abc&refresh_token=def")
	require.NoError(t, err)
	require.Equal(t, "abc", a.AccessToken)
	require.Equal(t, "def", a.RefreshToken)
	require.Empty(t, a.UserNumber)
	require.Equal(t, "https://us.lgeapi.com", a.OAuthRoot)
}

func TestFromCallbackURLFragment(t *testing.T) {
	t.Parallel()

	gw := testGateway("", "https://us.lgeapi.com")
	a, err := FromCallbackURL(context.Background(), newTransport(t), gw,
		"https://kr.m.lgaccount.com/login/iabClose#access_token=abc&refresh_token=def")
	require.NoError(t, err)
	require.Equal(t, "abc", a.AccessToken)
	require.Equal(t, "def", a.RefreshToken)
}

func TestFromCallbackURLCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/1.0/oauth2/token", r.URL.Path)
		require.Equal(t, wideq.OAuthClientKey, r.Header.Get("x-lge-appkey"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		requireSignature(t, r, "x-lge-oauth-date", "x-lge-oauth-signature",
			"/oauth/1.0/oauth2/token?"+string(raw))

		form, err := url.ParseQuery(string(raw))
		require.NoError(t, err)
		require.Equal(t, "code-77", form.Get("code"))
		require.Equal(t, "authorization_code", form.Get("grant_type"))
		require.Equal(t, wideq.OAuthRedirectURI, form.Get("redirect_uri"))

		fmt.Fprint(w, `{"access_token": "fresh-access", "refresh_token": "fresh-refresh"}`)
	}))
	defer srv.Close()

	callback := "https://kr.m.lgaccount.com/login/iabClose?" + url.Values{
		"code":               {"code-77"},
		"user_number":        {"US2301"},
		"oauth2_backend_url": {srv.URL},
	}.Encode()

	gw := testGateway("", "https://us.lgeapi.com")
	a, err := FromCallbackURL(context.Background(), newTransport(t), gw, callback)
	require.NoError(t, err)
	require.Equal(t, "fresh-access", a.AccessToken)
	require.Equal(t, "fresh-refresh", a.RefreshToken)
	require.Equal(t, "US2301", a.UserNumber)
	require.Equal(t, srv.URL, a.OAuthRoot)
}

func TestFromCallbackURLInvalid(t *testing.T) {
	t.Parallel()

	gw := testGateway("", "https://us.lgeapi.com")
	_, err := FromCallbackURL(context.Background(), newTransport(t), gw,
		"https://kr.m.lgaccount.com/login/iabClose?unrelated=1")
	require.Error(t, err)
	require.True(t, trace.IsBadParameter(err), "unexpected error: %v", err)
}

func TestRefreshLegacy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		require.Equal(t, wideq.OAuthClientKey, r.Header.Get("lgemp-x-app-key"))

		// The legacy endpoint signs the raw token concatenation, not the
		// encoded body.
		requireSignature(t, r, "lgemp-x-date", "lgemp-x-signature",
			"/oauth2/token?grant_type=refresh_token&refresh_token=steak")

		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		require.Equal(t, "steak", r.PostForm.Get("refresh_token"))

		fmt.Fprint(w, `{"status": 1, "access_token": "newtoken"}`)
	}))
	defer srv.Close()

	a := &Auth{AccessToken: "oldtoken", RefreshToken: "steak", OAuthRoot: srv.URL}
	refreshed, err := a.Refresh(context.Background(), newTransport(t))
	require.NoError(t, err)
	require.Equal(t, "newtoken", refreshed.AccessToken)
	require.Equal(t, "steak", refreshed.RefreshToken)

	// The original credential is untouched.
	require.Equal(t, "oldtoken", a.AccessToken)
}

func TestRefreshLegacyRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 2}`)
	}))
	defer srv.Close()

	a := &Auth{RefreshToken: "steak", OAuthRoot: srv.URL}
	_, err := a.Refresh(context.Background(), newTransport(t))
	require.Error(t, err)
	require.True(t, core.IsTokenError(err), "unexpected error: %v", err)
}

func TestRefreshV2(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/1.0/oauth2/token", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, "grant_type=refresh_token&refresh_token=steak", string(raw))
		requireSignature(t, r, "x-lge-oauth-date", "x-lge-oauth-signature",
			"/oauth/1.0/oauth2/token?"+string(raw))

		fmt.Fprint(w, `{"access_token": "newtoken"}`)
	}))
	defer srv.Close()

	a := &Auth{RefreshToken: "steak", UserNumber: "US2301", OAuthRoot: srv.URL}
	refreshed, err := a.Refresh(context.Background(), newTransport(t))
	require.NoError(t, err)
	require.Equal(t, "newtoken", refreshed.AccessToken)
	require.Equal(t, "steak", refreshed.RefreshToken)
	require.Equal(t, "US2301", refreshed.UserNumber)
}

func TestRefreshV2Rejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": "invalid_grant"}}`)
	}))
	defer srv.Close()

	a := &Auth{RefreshToken: "steak", UserNumber: "US2301", OAuthRoot: srv.URL}
	_, err := a.Refresh(context.Background(), newTransport(t))
	require.Error(t, err)
	require.True(t, core.IsTokenError(err), "unexpected error: %v", err)
}

func TestRefreshWithoutToken(t *testing.T) {
	t.Parallel()

	a := &Auth{OAuthRoot: "https://us.lgeapi.com"}
	_, err := a.Refresh(context.Background(), newTransport(t))
	require.True(t, trace.IsBadParameter(err))

	a = &Auth{RefreshToken: "steak"}
	_, err = a.Refresh(context.Background(), newTransport(t))
	require.True(t, trace.IsBadParameter(err))
}

func TestStartSessionLegacy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/member/login", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]any{
			wideq.DataRootLegacy: map[string]any{
				"countryCode": "US",
				"langCode":    "en-US",
				"loginType":   "EMP",
				"token":       "access-1",
			},
		}, body)

		fmt.Fprint(w, `{
			"lgedmRoot": {
				"returnCd": "0000",
				"jsessionId": "sess-81",
				"item": {"deviceId": "dev-1", "alias": "Washer", "deviceType": 201}
			}
		}`)
	}))
	defer srv.Close()

	a := &Auth{AccessToken: "access-1", RefreshToken: "steak", OAuthRoot: "https://us.lgeapi.com"}
	sess, devices, err := a.StartSession(context.Background(), newTransport(t), testGateway(srv.URL, "https://us.lgeapi.com"))
	require.NoError(t, err)
	require.Equal(t, "sess-81", sess.ID())
	require.Len(t, devices, 1)
	require.Equal(t, "dev-1", devices[0].ID)
}

func TestStartSessionV2(t *testing.T) {
	t.Parallel()

	a := &Auth{AccessToken: "access-1", RefreshToken: "steak", UserNumber: "US2301", OAuthRoot: "https://us.lgeapi.com"}
	sess, devices, err := a.StartSession(context.Background(), newTransport(t), testGateway("", "https://us.lgeapi.com"))
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Empty(t, sess.ID())
	require.Nil(t, devices)
}
