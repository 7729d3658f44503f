package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/safecircle/shared"
	"github.com/go-resty/resty/v2"
)

const DefaultApiURL = "https://graph.facebook.com/v17.0"

type textBody struct {
	Body string `json:"body"`
}

type messageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// CloudClient sends text messages through the WhatsApp Cloud API
type CloudClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

func NewCloudClient(config shared.WhatsAppConfig) *CloudClient {
	apiURL := config.ApiURL
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultApiURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")).
		SetTimeout(30*time.Second).
		SetAuthToken(config.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &CloudClient{
		httpClient:    client,
		phoneNumberID: config.PhoneNumberID,
	}
}

// Send sends 'body' as a text message to the WhatsApp user with phone number 'to'.
// A nil error means the message was accepted, not that it was delivered.
func (c *CloudClient) Send(ctx context.Context, to, body string) error {
	var result messageResponse
	var apiErr errorResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("phoneNumberId", c.phoneNumberID).
		SetBody(messageRequest{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "text",
			Text:             textBody{Body: body},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/{phoneNumberId}/messages")
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}

	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return fmt.Errorf("whatsapp: %v (code: %v, status: %v)", apiErr.Error.Message, apiErr.Error.Code, resp.StatusCode())
		}
		return fmt.Errorf("whatsapp: unexpected status %v", resp.StatusCode())
	}

	return nil
}
