// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

func TestNewClient(t *testing.T) {
	t.Run("valid URL", func(t *testing.T) {
		client, err := NewClient(ClientConfig{HomeserverURL: "http://localhost:6167/"})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.BaseURL() != "http://localhost:6167" {
			t.Errorf("BaseURL = %q, want trailing slash trimmed", client.BaseURL())
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		_, err := NewClient(ClientConfig{})
		if err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewClient(ClientConfig{HomeserverURL: "://invalid"})
		if err == nil {
			t.Fatal("expected error for invalid URL")
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewClient(ClientConfig{HomeserverURL: "ftp://example.org"})
		if err == nil {
			t.Fatal("expected error for ftp scheme")
		}
	})
}

func TestServerVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/versions" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if request.Header.Get("Authorization") != "" {
			t.Error("versions request should be unauthenticated")
		}
		if agent := request.Header.Get("User-Agent"); agent != "matrixbot/test" {
			t.Errorf("User-Agent = %q, want matrixbot/test", agent)
		}
		writeJSON(writer, map[string]any{"versions": []string{"v1.10", "v1.11"}})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL, UserAgent: "matrixbot/test"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	response, err := client.ServerVersions(context.Background())
	if err != nil {
		t.Fatalf("ServerVersions failed: %v", err)
	}
	if len(response.Versions) != 2 || response.Versions[1] != "v1.11" {
		t.Errorf("unexpected versions: %v", response.Versions)
	}
}

func TestLoginPassword(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if request.URL.Path != "/_matrix/client/v3/login" {
				t.Errorf("unexpected path: %s", request.URL.Path)
				writer.WriteHeader(http.StatusNotFound)
				return
			}

			var body map[string]any
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			if body["type"] != "m.login.password" {
				t.Errorf("unexpected login type: %v", body["type"])
			}
			if body["password"] != "secret" {
				t.Errorf("unexpected password: %v", body["password"])
			}

			writeJSON(writer, map[string]any{
				"user_id":      "@bob:test.local",
				"access_token": "syt_bob_token",
				"device_id":    "DEVICE2",
			})
		}))
		defer server.Close()

		client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}

		session, err := client.LoginRaw(context.Background(), map[string]any{
			"type":       "m.login.password",
			"identifier": map[string]any{"type": "m.id.user", "user": "bob"},
			"password":   "secret",
		})
		if err != nil {
			t.Fatalf("LoginRaw failed: %v", err)
		}
		defer session.Close()

		if session.UserID().String() != "@bob:test.local" {
			t.Errorf("unexpected user ID: %s", session.UserID())
		}
		if session.DeviceID() != "DEVICE2" {
			t.Errorf("unexpected device ID: %s", session.DeviceID())
		}
		if err := session.Close(); err != nil {
			t.Errorf("Close returned %v", err)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusForbidden)
			json.NewEncoder(writer).Encode(MatrixError{
				Code:    ErrCodeForbidden,
				Message: "Invalid password",
			})
		}))
		defer server.Close()

		client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}

		_, err = client.LoginRaw(context.Background(), map[string]any{"type": "m.login.password", "password": "wrong"})
		if err == nil {
			t.Fatal("expected error for invalid credentials")
		}
		if !IsMatrixError(err, ErrCodeForbidden) {
			t.Errorf("expected M_FORBIDDEN error, got: %v", err)
		}
		matrixErr, ok := AsMatrixError(err)
		if !ok || matrixErr.StatusCode != http.StatusForbidden {
			t.Errorf("expected status 403, got: %v", err)
		}
	})
}

func TestLoginRaw(t *testing.T) {
	t.Run("payload passed through", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			if body["type"] != "m.login.token" || body["token"] != "login-token" {
				t.Errorf("payload not passed verbatim: %v", body)
			}
			writeJSON(writer, map[string]any{
				"user_id":      "@bot:example.org",
				"access_token": "syt_bot",
				"device_id":    "BOTDEV",
			})
		}))
		defer server.Close()

		client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		session, err := client.LoginRaw(context.Background(), map[string]any{
			"type":  "m.login.token",
			"token": "login-token",
		})
		if err != nil {
			t.Fatalf("LoginRaw failed: %v", err)
		}
		defer session.Close()
		if session.UserID() != ref.MustParseUserID("@bot:example.org") {
			t.Errorf("unexpected user ID: %s", session.UserID())
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		client, _ := NewClient(ClientConfig{HomeserverURL: "http://localhost:1"})
		if _, err := client.LoginRaw(context.Background(), nil); err == nil {
			t.Fatal("expected error for empty payload")
		}
	})

	t.Run("missing access token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
			writeJSON(writer, map[string]any{"user_id": "@bot:example.org"})
		}))
		defer server.Close()

		client, _ := NewClient(ClientConfig{HomeserverURL: server.URL})
		_, err := client.LoginRaw(context.Background(), map[string]any{"type": "m.login.password"})
		if err == nil {
			t.Fatal("expected error for response without access token")
		}
		if _, ok := AsMatrixError(err); ok {
			t.Errorf("malformed response should not be a MatrixError: %v", err)
		}
	})
}

func TestNonJSONErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client, _ := NewClient(ClientConfig{HomeserverURL: server.URL})
	_, err := client.ServerVersions(context.Background())
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if _, ok := AsMatrixError(err); ok {
		t.Errorf("non-JSON error body should not produce a MatrixError: %v", err)
	}
	if !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("error should carry the raw body: %v", err)
	}
}

func TestMatrixError(t *testing.T) {
	t.Run("error message format", func(t *testing.T) {
		err := &MatrixError{
			Code:       ErrCodeForbidden,
			Message:    "Access denied",
			StatusCode: 403,
		}
		expected := "matrix: M_FORBIDDEN (403): Access denied"
		if err.Error() != expected {
			t.Errorf("unexpected error message: %s", err.Error())
		}
	})

	t.Run("IsMatrixError", func(t *testing.T) {
		err := &MatrixError{Code: ErrCodeNotFound, Message: "not found", StatusCode: 404}
		if !IsMatrixError(err, ErrCodeNotFound) {
			t.Error("IsMatrixError should match M_NOT_FOUND")
		}
		if IsMatrixError(err, ErrCodeForbidden) {
			t.Error("IsMatrixError should not match M_FORBIDDEN")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		inner := &MatrixError{Code: ErrCodeUnknownToken, StatusCode: 401}
		wrapped := errors.Join(errors.New("outer"), inner)
		matrixErr, ok := AsMatrixError(wrapped)
		if !ok || matrixErr != inner {
			t.Errorf("AsMatrixError did not find wrapped error: %v", wrapped)
		}
	})

	t.Run("rate limit carries retry delay", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusTooManyRequests)
			writer.Write([]byte(`{"errcode":"M_LIMIT_EXCEEDED","error":"slow down","retry_after_ms":1500}`))
		}))
		defer server.Close()

		client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		_, err = client.ServerVersions(context.Background())
		matrixErr, ok := AsMatrixError(err)
		if !ok || matrixErr.Code != ErrCodeLimitExceeded {
			t.Fatalf("expected M_LIMIT_EXCEEDED, got %v", err)
		}
		if matrixErr.RetryAfter() != 1500*time.Millisecond {
			t.Errorf("RetryAfter() = %v, want 1.5s", matrixErr.RetryAfter())
		}
	})

	t.Run("non-matrix error returns false", func(t *testing.T) {
		err := context.Canceled
		if IsMatrixError(err, ErrCodeNotFound) {
			t.Error("IsMatrixError should return false for non-matrix errors")
		}
	})
}
