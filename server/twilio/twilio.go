package twilio

import (
	"context"
	"fmt"
	"strings"

	"github.com/Daskott/safecircle/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsAppScheme = "whatsapp:"

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// ClientWrapper sends WhatsApp messages through Twilio's messaging API
type ClientWrapper struct {
	messages messageCreator
	config   shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		messages: client.ApiV2010,
		config:   config,
	}
}

// Send sends 'body' to the WhatsApp user with phone number 'to'.
// The twilio client can't be cancelled, so the call is abandoned once 'ctx' is done.
func (cw *ClientWrapper) Send(ctx context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(WhatsAppAddress(cw.config.WhatsAppNumber))
	params.SetTo(WhatsAppAddress(to))
	params.SetBody(body)

	result := make(chan error, 1)
	go func() {
		resp, err := cw.messages.CreateMessage(params)
		if err != nil {
			result <- err
			return
		}

		if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
			result <- fmt.Errorf("twilio: %v", *resp.ErrorMessage)
			return
		}
		result <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		return err
	}
}

// WhatsAppAddress returns 'phoneNumber' in the form twilio expects for WhatsApp
func WhatsAppAddress(phoneNumber string) string {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if strings.HasPrefix(phoneNumber, whatsAppScheme) {
		return phoneNumber
	}

	return whatsAppScheme + phoneNumber
}
