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

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/sampsyo/wideq"
)

// fastTransport builds a transport with millisecond backoff so retry tests
// finish quickly.
func fastTransport(t *testing.T, attempts int) *Transport {
	t.Helper()
	tr, err := NewTransport(Config{
		RetryAttempts: attempts,
		RetryBase:     time.Millisecond,
		RetryMax:      4 * time.Millisecond,
	})
	require.NoError(t, err)
	return tr
}

func TestPostLGEDM(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, wideq.AppKey, r.Header.Get("x-thinq-application-key"))
		require.Equal(t, wideq.SecurityKey, r.Header.Get("x-thinq-security-key"))
		require.Equal(t, "token9", r.Header.Get("x-thinq-token"))
		require.Equal(t, "session3", r.Header.Get("x-thinq-jsessionId"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]any{
			wideq.DataRootLegacy: map[string]any{"cmd": "Mon"},
		}, body)

		fmt.Fprint(w, `{"lgedmRoot": {"returnCd": "0000", "returnMsg": "OK", "workId": "work-1"}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 1)
	data, err := tr.Post(context.Background(), srv.URL, map[string]any{"cmd": "Mon"}, RequestOptions{
		Envelope:    EnvelopeLGEDM,
		AccessToken: "token9",
		SessionID:   "session3",
	})
	require.NoError(t, err)
	require.Equal(t, "work-1", data["workId"])
}

func TestGetResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, wideq.APIKey, r.Header.Get("x-api-key"))
		require.Equal(t, wideq.ClientID, r.Header.Get("x-client-id"))
		require.Equal(t, "NO", r.Header.Get("x-country-code"))
		require.Equal(t, "no-NO", r.Header.Get("x-language-code"))
		require.Equal(t, wideq.SvcCode, r.Header.Get("x-service-code"))
		require.Equal(t, "emp7", r.Header.Get("x-emp-token"))
		require.Equal(t, "user4", r.Header.Get("x-user-no"))

		fmt.Fprint(w, `{"resultCode": "0000", "result": {"item": {"alias": "Washer"}}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 1)
	data, err := tr.Get(context.Background(), srv.URL, RequestOptions{
		Envelope:    EnvelopeResult,
		AccessToken: "emp7",
		UserNumber:  "user4",
		Country:     "NO",
		Language:    "no-NO",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"item": map[string]any{"alias": "Washer"}}, data)
}

func TestResultLocaleDefaults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "US", r.Header.Get("x-country-code"))
		require.Equal(t, "en-US", r.Header.Get("x-language-code"))
		fmt.Fprint(w, `{"resultCode": "0000", "result": {}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 1)
	_, err := tr.Get(context.Background(), srv.URL, RequestOptions{Envelope: EnvelopeResult})
	require.NoError(t, err)
}

func TestReturnCodeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		envelope Envelope
		check    func(error) bool
	}{
		{
			name:     "expired session",
			response: `{"lgedmRoot": {"returnCd": "0102", "returnMsg": "EMP"}}`,
			envelope: EnvelopeLGEDM,
			check:    IsNotLoggedIn,
		},
		{
			name:     "session on another client",
			response: `{"lgedmRoot": {"returnCd": "9003"}}`,
			envelope: EnvelopeLGEDM,
			check:    IsNotLoggedIn,
		},
		{
			name:     "device offline",
			response: `{"lgedmRoot": {"returnCd": "0106"}}`,
			envelope: EnvelopeLGEDM,
			check:    IsNotConnected,
		},
		{
			name:     "unsupported operation",
			response: `{"lgedmRoot": {"returnCd": "0100"}}`,
			envelope: EnvelopeLGEDM,
			check:    IsFailedRequest,
		},
		{
			name:     "bad credential",
			response: `{"lgedmRoot": {"returnCd": "0110"}}`,
			envelope: EnvelopeLGEDM,
			check:    IsInvalidCredential,
		},
		{
			name:     "numeric code on the v2 envelope",
			response: `{"resultCode": 9000}`,
			envelope: EnvelopeResult,
			check: func(err error) bool {
				var target *InvalidRequestError
				return errors.As(err, &target)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			tr := fastTransport(t, 1)
			_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: tt.envelope})
			require.Error(t, err)
			require.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestUnknownReturnCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"lgedmRoot": {"returnCd": "8105", "returnMsg": "boom"}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 1)
	_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: EnvelopeLGEDM})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "8105", apiErr.Code)
	require.Equal(t, "boom", apiErr.Message)
}

func TestMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		envelope Envelope
	}{
		{name: "not json", response: `<html>Server Error</html>`, envelope: EnvelopeLGEDM},
		{name: "missing legacy root", response: `{"other": {}}`, envelope: EnvelopeLGEDM},
		{name: "missing result root", response: `{"resultCode": "0000"}`, envelope: EnvelopeResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer srv.Close()

			tr := fastTransport(t, 1)
			_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: tt.envelope})
			require.Error(t, err)
			require.True(t, IsMalformedResponse(err), "unexpected error: %v", err)
		})
	}
}

func TestRetryOnServerUnavailable(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"lgedmRoot": {"returnCd": "0000"}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 5)
	_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: EnvelopeLGEDM})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryExhaustion(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := fastTransport(t, 3)
	_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: EnvelopeLGEDM})
	require.Error(t, err)
	require.True(t, trace.IsConnectionProblem(err), "unexpected error: %v", err)
	require.Equal(t, 3, calls)
}

func TestNoRetryOnAPIError(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"lgedmRoot": {"returnCd": "0110"}}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 5)
	_, err := tr.Post(context.Background(), srv.URL, nil, RequestOptions{Envelope: EnvelopeLGEDM})
	require.Error(t, err)
	require.True(t, IsInvalidCredential(err), "unexpected error: %v", err)
	require.Equal(t, 1, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// A huge backoff parks the loop in the retry wait, where only
	// cancellation can release it.
	tr, err := NewTransport(Config{RetryBase: time.Hour, RetryMax: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = tr.Post(ctx, srv.URL, nil, RequestOptions{Envelope: EnvelopeLGEDM})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPostForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.Equal(t, "signed", r.Header.Get("lgemp-x-signature"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, "grant_type=refresh_token&refresh_token=steak", string(raw))

		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status": 2}`)
	}))
	defer srv.Close()

	tr := fastTransport(t, 1)
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", "steak")
	headers := http.Header{}
	headers.Set("lgemp-x-signature", "signed")

	status, body, err := tr.PostForm(context.Background(), srv.URL, form, headers)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, map[string]any{"status": float64(2)}, body)
}

func TestLegacyTLSRouting(t *testing.T) {
	t.Parallel()

	tr, err := NewTransport(Config{LegacyTLSHosts: []string{"kic.lgthinq.com"}})
	require.NoError(t, err)
	require.NotNil(t, tr.legacyTLS)
	require.Same(t, tr.legacyTLS, tr.clientFor("https://kic.lgthinq.com:46030/api/common/gatewayUriList"))
	require.Same(t, tr.cfg.HTTPClient, tr.clientFor("https://route.lgthinq.com:46030/v1/service/application/gateway-uri"))

	plain, err := NewTransport(Config{})
	require.NoError(t, err)
	require.Nil(t, plain.legacyTLS)
	require.Same(t, plain.cfg.HTTPClient, plain.clientFor("https://kic.lgthinq.com:46030/api"))
}
