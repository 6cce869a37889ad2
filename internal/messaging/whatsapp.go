package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// messageCreator is the slice of the Twilio REST API used here
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioWhatsApp sends messages through Twilio's WhatsApp channel
type TwilioWhatsApp struct {
	api  messageCreator
	from string
	log  *zap.Logger
}

// NewTwilioWhatsApp creates a sender for the given account and WhatsApp-enabled number
func NewTwilioWhatsApp(accountSID, authToken, fromNumber string, log *zap.Logger) *TwilioWhatsApp {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioWhatsApp{api: client.Api, from: fromNumber, log: log}
}

// Send delivers body to phone. The Twilio client does not take a context, so ctx is only
// checked before the call.
func (t *TwilioWhatsApp) Send(ctx context.Context, phone, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(whatsappAddress(phone))
	params.SetFrom(whatsappAddress(t.from))
	params.SetBody(body)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if msg != nil && msg.Sid != nil {
		t.log.Debug("whatsapp message queued", zap.String("sid", *msg.Sid))
	}
	return nil
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// NopSender accepts every message without delivering it. Used in developer mode.
type NopSender struct {
	Log *zap.Logger
}

// Send logs and drops the message
func (n NopSender) Send(_ context.Context, _ string, _ string) error {
	if n.Log != nil {
		n.Log.Debug("message delivery skipped")
	}
	return nil
}
