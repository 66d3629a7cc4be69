// Package client is the outbound HTTP side of the node: version
// discovery pulls during registration and result pushes to a
// counterpart's response_url. Requests carry the OCPI "Token" auth
// scheme; the bearer value must already be in wire form.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ocpinode/models"
	"ocpinode/ocpi"
)

const requestTimeout = 5 * time.Second

type Client struct {
	client *http.Client
}

func New() *Client {
	return &Client{
		client: &http.Client{},
	}
}

func (c *Client) doRequest(ctx context.Context, method, url, bearer string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Token "+bearer)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

// getData performs a GET and unwraps the OCPI envelope's data field.
func (c *Client) getData(ctx context.Context, url, bearer string, out interface{}) error {
	body, err := c.doRequest(ctx, http.MethodGet, url, bearer, nil)
	if err != nil {
		return err
	}
	var envelope ocpi.Response
	if err = json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding response envelope: %w", err)
	}
	if err = json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// Versions fetches the counterpart's supported protocol versions.
func (c *Client) Versions(ctx context.Context, url, bearer string) ([]models.Version, error) {
	var versions []models.Version
	if err := c.getData(ctx, url, bearer, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// VersionDetails fetches the endpoint catalogue for one version.
func (c *Client) VersionDetails(ctx context.Context, url, bearer string) (*models.VersionDetails, error) {
	var details models.VersionDetails
	if err := c.getData(ctx, url, bearer, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// PostResult delivers a terminal result document to a response_url.
func (c *Client) PostResult(ctx context.Context, url, bearer string, result interface{}) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = c.doRequest(ctx, http.MethodPost, url, bearer, body)
	return err
}
