// Package client talks to the SafeCircle HTTP api.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/safecircle/alert"
	"github.com/go-resty/resty/v2"
)

var ErrUnauthorized = errors.New("not authenticated, please log in again")

type responsePayload struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type HistoryEntry struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	PhoneNumber string    `json:"phoneNumber"`
	Procedure   string    `json:"procedure"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client implements alert.Backend
type Client struct {
	httpClient *resty.Client
}

func New(apiURL, token string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if token != "" {
		httpClient.SetAuthToken(token)
	}

	return &Client{httpClient: httpClient}
}

// Login exchanges the user's credentials for a token, which is used for every later request
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	data := struct {
		Token string `json:"token"`
	}{}

	err := c.do(ctx, "POST", "/auth/login", map[string]string{"email": email, "password": password}, &data)
	if err != nil {
		return "", err
	}

	c.httpClient.SetAuthToken(data.Token)
	return data.Token, nil
}

// ReportOptions returns the user's report options, or the defaults when the user has none
func (c *Client) ReportOptions(ctx context.Context) ([]alert.ReportOption, error) {
	options := []alert.ReportOption{}

	err := c.do(ctx, "GET", "/contact/report-options", nil, &options)
	if err != nil {
		return nil, err
	}

	if len(options) == 0 {
		return alert.DefaultReportOptions(), nil
	}

	return options, nil
}

func (c *Client) UpdateReportOption(ctx context.Context, option alert.ReportOption) ([]alert.ReportOption, error) {
	options := []alert.ReportOption{}

	err := c.do(ctx, "PUT", "/contact/report-options", option, &options)
	if err != nil {
		return nil, err
	}

	return options, nil
}

func (c *Client) SendWhatsAppMessages(ctx context.Context, name, procedure, locationLink string, contacts []string) error {
	return c.do(ctx, "POST", "/contact/send-whatsapp-messages", map[string]interface{}{
		"name":         name,
		"procedure":    procedure,
		"locationLink": locationLink,
		"contacts":     contacts,
	}, nil)
}

func (c *Client) AddHistory(ctx context.Context, situation, phoneNumber, procedure string) error {
	return c.do(ctx, "POST", "/auth/history", map[string]string{
		"type":        situation,
		"phoneNumber": phoneNumber,
		"procedure":   procedure,
	}, nil)
}

func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	history := []HistoryEntry{}

	err := c.do(ctx, "GET", "/auth/history", nil, &history)
	if err != nil {
		return nil, err
	}

	return history, nil
}

// do sends a request & decodes the 'data' of the response envelope into 'result', if provided
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	payload := responsePayload{}

	req := c.httpClient.R().SetContext(ctx).SetResult(&payload).SetError(&payload)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%v %v: %w", method, path, err)
	}

	if resp.StatusCode() == 401 {
		return ErrUnauthorized
	}

	if resp.IsError() {
		if len(payload.Errors) > 0 {
			return fmt.Errorf("%v %v: %v", method, path, strings.Join(payload.Errors, ", "))
		}
		return fmt.Errorf("%v %v: unexpected status %v", method, path, resp.StatusCode())
	}

	if result == nil || len(payload.Data) == 0 {
		return nil
	}

	return json.Unmarshal(payload.Data, result)
}
