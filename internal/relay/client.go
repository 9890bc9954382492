package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrPeerRejected = errors.New("peer rejected message")

// Issuer signs a payload into a token. *rsajwt.Processor implements it.
type Issuer interface {
	Issue(payload any) (string, error)
}

// Client posts signed messages to one peer.
type Client struct {
	issuer  Issuer
	peerURL string
	http    *http.Client
}

// NewClient creates a Client posting to peerURL. A nil httpClient uses a
// client with a 10 second timeout.
func NewClient(issuer Issuer, peerURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{issuer: issuer, peerURL: peerURL, http: httpClient}
}

// Send issues a token for msg and posts it as a JSON string.
func (c *Client) Send(ctx context.Context, msg ChatMessage) error {
	token, err := c.issuer.Issue(msg)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	body, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.peerURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", c.peerURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var reply struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &reply) != nil || reply.Message == "" {
			reply.Message = string(bytes.TrimSpace(raw))
		}
		return fmt.Errorf("%w: %d %s", ErrPeerRejected, resp.StatusCode, reply.Message)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Send",
		"peer":       c.peerURL,
		"message_id": msg.ID,
	}).Debug("Message delivered")
	return nil
}
