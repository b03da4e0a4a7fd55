// Package notify reports emulator status to an embedding upstream, so a
// driver process can learn when the runtime is ready or failed to start.
package notify

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusReady Status = "ready"
	StatusError Status = "error"
)

type Client struct {
	Endpoint  string
	RuntimeID string

	http *http.Client
}

func NewClient(endpoint, runtimeID string) *Client {
	return &Client{
		Endpoint:  endpoint,
		RuntimeID: runtimeID,
		http:      http.DefaultClient,
	}
}

// SendStatus posts a status callback to {endpoint}/status/{runtimeID}/{status}.
func (c *Client) SendStatus(status Status, payload []byte) error {
	endpoint, err := url.JoinPath(c.Endpoint, "status", c.RuntimeID, string(status))
	if err != nil {
		return err
	}
	logrus.WithField("url", endpoint).WithField("runtime-id", c.RuntimeID).Debug("Sending status callback.")

	resp, err := c.http.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status callback returned %d", resp.StatusCode)
	}
	return nil
}
