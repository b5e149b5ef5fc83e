package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	expoBatchLimit  = 100
	expoMaxAttempts = 3
)

// ExpoPushMessage represents a single push notification message for the Expo push API
type ExpoPushMessage struct {
	To        string                 `json:"to"`
	Title     string                 `json:"title,omitempty"`
	Body      string                 `json:"body,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

// ExpoPusher sends push notifications through the Expo push API
type ExpoPusher struct {
	URL         string
	AccessToken string
	Client      *http.Client
	// Backoff is the wait before the second attempt of a batch; it doubles per attempt
	Backoff time.Duration
}

// NewExpoPusher returns a pusher for url with the default client and backoff
func NewExpoPusher(url, accessToken string) *ExpoPusher {
	return &ExpoPusher{
		URL:         url,
		AccessToken: accessToken,
		Client:      &http.Client{Timeout: 15 * time.Second},
		Backoff:     500 * time.Millisecond,
	}
}

// Push sends msg to tokens in batches of 100. Each batch is tried up to three times. The
// returned tokens were rejected by Expo as DeviceNotRegistered.
func (p *ExpoPusher) Push(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var messages []ExpoPushMessage
	for _, token := range tokens {
		messages = append(messages, ExpoPushMessage{
			To:        token,
			Title:     msg.Title,
			Body:      msg.Body,
			Sound:     "default",
			Data:      pushData(msg),
			Priority:  "high",
			ChannelID: "default",
		})
	}

	var invalid []string
	var failed int
	for i := 0; i < len(messages); i += expoBatchLimit {
		end := i + expoBatchLimit
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[i:end]

		tickets, err := p.sendWithRetry(ctx, batch)
		if err != nil {
			failed++
			zap.S().Errorw("failed to send Expo push batch", "from", i, "to", end-1, "error", err)
			continue
		}
		for j, t := range tickets {
			if j < len(batch) && t.Status == "error" && t.Details.Error == "DeviceNotRegistered" {
				invalid = append(invalid, batch[j].To)
			}
		}
	}

	if failed > 0 {
		return invalid, fmt.Errorf("%d of %d push batches failed", failed, (len(messages)+expoBatchLimit-1)/expoBatchLimit)
	}
	return invalid, nil
}

func pushData(msg Message) map[string]interface{} {
	data := make(map[string]interface{}, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["type"] = msg.Type
	return data
}

type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }

func (p *ExpoPusher) sendWithRetry(ctx context.Context, batch []ExpoPushMessage) ([]expoTicket, error) {
	wait := p.Backoff
	var lastErr error
	for attempt := 1; attempt <= expoMaxAttempts; attempt++ {
		tickets, err := p.sendBatch(ctx, batch)
		if err == nil {
			return tickets, nil
		}
		lastErr = err
		if _, ok := err.(retryableError); !ok || attempt == expoMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, lastErr
}

func (p *ExpoPusher) sendBatch(ctx context.Context, messages []ExpoPushMessage) ([]expoTicket, error) {
	jsonData, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, retryableError{fmt.Errorf("failed to send push request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, retryableError{fmt.Errorf("expo push API returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo push API returned status %d", resp.StatusCode)
	}

	var body expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	zap.S().Debugw("sent push notifications via Expo", "count", len(messages))
	return body.Data, nil
}
