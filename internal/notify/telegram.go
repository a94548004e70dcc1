package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

type telegramPayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramChannel sends notifications through the Telegram Bot API.
type TelegramChannel struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// TelegramOption configures the telegram channel.
type TelegramOption func(*TelegramChannel)

// WithTelegramBaseURL overrides the API base URL.
func WithTelegramBaseURL(url string) TelegramOption {
	return func(ch *TelegramChannel) {
		if url != "" {
			ch.baseURL = url
		}
	}
}

// WithTelegramHTTPClient overrides the HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(ch *TelegramChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewTelegramChannel constructs a telegram channel.
func NewTelegramChannel(token, chatID string, opts ...TelegramOption) (*TelegramChannel, error) {
	if token == "" {
		return nil, errors.New("telegram channel: empty token")
	}
	if chatID == "" {
		return nil, errors.New("telegram channel: empty chat id")
	}
	channel := &TelegramChannel{
		baseURL: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Send posts the content via the sendMessage method.
func (t *TelegramChannel) Send(ctx context.Context, content string) error {
	if t == nil || t.token == "" {
		return errors.New("telegram channel: empty token")
	}
	payload := telegramPayload{ChatID: t.chatID, Text: content}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram channel: non-2xx response %d", resp.StatusCode)
	}
	var decoded telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if !decoded.OK {
		return fmt.Errorf("telegram channel: api error: %s", decoded.Description)
	}
	return nil
}
