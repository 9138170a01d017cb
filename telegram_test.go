package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramClientSendMessage(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		wantErr        bool
	}{
		{"delivered (200)", http.StatusOK, false},
		{"bad request (400)", http.StatusBadRequest, true},
		{"unauthorized (401)", http.StatusUnauthorized, true},
		{"too many requests (429)", http.StatusTooManyRequests, true},
		{"created is not success (201)", http.StatusCreated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sendMessageRequest
			var path, contentType string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				contentType = r.Header.Get("Content-Type")
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.responseStatus)
				w.Write([]byte(`{"ok":false,"description":"Bad Request: message is too long"}`))
			}))
			defer server.Close()

			settings := &Settings{Telegram: TelegramSettings{APIBase: server.URL + "/"}}
			client := NewTelegramClient(settings, "123:secret", "42")

			err := client.SendMessage(context.Background(), "🏀 hello")

			if path != "/bot123:secret/sendMessage" {
				t.Errorf("path = %q", path)
			}
			if contentType != "application/json" {
				t.Errorf("Content-Type = %q", contentType)
			}
			if got.ChatID != "42" || got.Text != "🏀 hello" {
				t.Errorf("payload = %+v", got)
			}

			if !tt.wantErr {
				if err != nil {
					t.Errorf("SendMessage() unexpected error: %v", err)
				}
				return
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("SendMessage() error = %v, want *HTTPError", err)
			}
			if httpErr.StatusCode != tt.responseStatus {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.responseStatus)
			}
			if strings.Contains(err.Error(), "secret") {
				t.Errorf("error leaks bot token: %v", err)
			}
			if !strings.Contains(err.Error(), "message is too long") {
				t.Errorf("error should include the response body: %v", err)
			}
		})
	}
}

func TestTelegramClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewTelegramClient(&Settings{Telegram: TelegramSettings{APIBase: url}}, "123:secret", "42")
	err := client.SendMessage(context.Background(), "hello")
	if err == nil {
		t.Fatal("SendMessage() to closed server should fail")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks bot token: %v", err)
	}
}

func TestNewTelegramClientDefaultBase(t *testing.T) {
	client := NewTelegramClient(&Settings{}, "t", "c")
	if client.apiBase != "https://api.telegram.org" {
		t.Errorf("apiBase = %q", client.apiBase)
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: 404, URL: "https://example.com"}
	if err.Error() != "HTTP 404 for https://example.com" {
		t.Errorf("Error() = %q", err.Error())
	}

	err.Body = "not found"
	if err.Error() != "HTTP 404 for https://example.com: not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}
