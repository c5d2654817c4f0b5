// Package client talks to the e-learning API on behalf of the learner app
// and drives the flows that span the API and the device store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/irsalhamdi/e-learning/core/course"
	"github.com/irsalhamdi/e-learning/core/entitlement"
	"github.com/irsalhamdi/e-learning/core/order"
)

// ErrAlreadyOwned is returned when the API reports the course as already
// purchased.
var ErrAlreadyOwned = errors.New("course already owned")

// APIError is a non successful answer of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

type Client struct {
	base  string
	token string
	hc    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		hc:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error == "" {
			er.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: er.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) Course(ctx context.Context, id string) (course.Course, error) {
	var resp struct {
		Course course.Course `json:"course"`
	}
	if err := c.do(ctx, http.MethodGet, "/get-course/"+id, nil, &resp); err != nil {
		return course.Course{}, err
	}
	return resp.Course, nil
}

func (c *Client) Content(ctx context.Context, courseID string) ([]course.Content, error) {
	var resp struct {
		Content []course.Content `json:"content"`
	}
	if err := c.do(ctx, http.MethodGet, "/get-course-content/"+courseID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Content, nil
}

func (c *Client) Me(ctx context.Context) (entitlement.Snapshot, error) {
	var resp struct {
		User entitlement.Snapshot `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		return entitlement.Snapshot{}, err
	}
	return resp.User, nil
}

// StripeIntent opens a payment intent for cents and returns its client
// secret.
func (c *Client) StripeIntent(ctx context.Context, cents int64) (string, error) {
	in := struct {
		Amount int64 `json:"amount"`
	}{cents}

	var resp struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment", in, &resp); err != nil {
		return "", err
	}
	return resp.ClientSecret, nil
}

func (c *Client) CreateOrder(ctx context.Context, on order.OrderNew) (order.Order, error) {
	var resp struct {
		Order order.Order `json:"order"`
	}
	err := c.do(ctx, http.MethodPost, "/create-mobile-order", on, &resp)

	var ae *APIError
	if errors.As(err, &ae) && ae.Status == http.StatusConflict {
		return order.Order{}, fmt.Errorf("%s: %w", on.CourseID, ErrAlreadyOwned)
	}
	if err != nil {
		return order.Order{}, err
	}
	return resp.Order, nil
}
