// Package sms delivers text messages through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// ErrNotConfigured is returned by a nil Client.
var ErrNotConfigured = errors.New("sms gateway not configured")

type Client struct {
	baseURL  string
	apiKey   string
	senderID string
	http     *http.Client
	log      *logger.Logger
}

type sendRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	SenderID string `json:"senderId,omitempty"`
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if cfg.GetSMSGatewayURL() == "" {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:   cfg.GetSMSGatewayKey(),
		senderID: cfg.GetSMSSenderID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// SendMessage posts message to an E.164 phone number.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{
		Phone:    phoneNumber,
		Message:  message,
		SenderID: c.senderID,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("sms sent via gateway", "phone", phoneNumber)
	return nil
}

func formatAuthHeader(apiKey string) string {
	lower := strings.ToLower(apiKey)
	if strings.HasPrefix(lower, "basic ") || strings.HasPrefix(lower, "bearer ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
