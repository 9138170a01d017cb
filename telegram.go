package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// MessageSender delivers one text message
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramClient sends messages through the Telegram Bot API
type TelegramClient struct {
	apiBase string
	token   string
	chatID  string
	client  *http.Client
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// NewTelegramClient creates a client for one bot and destination chat
func NewTelegramClient(settings *Settings, token, chatID string) *TelegramClient {
	apiBase := strings.TrimRight(settings.Telegram.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &TelegramClient{
		apiBase: apiBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: settings.HTTPTimeout},
	}
}

// SendMessage posts text to the configured chat. Only HTTP 200 counts as delivered.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %s", c.redact(err.Error()))
	}
	defer resp.Body.Close()

	debugLog("Telegram sendMessage response: status=%d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("Telegram error: %d", resp.StatusCode)
		return &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        c.redact(endpoint),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// redact hides the bot token, which Telegram embeds in the URL path
func (c *TelegramClient) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "<token>")
}
