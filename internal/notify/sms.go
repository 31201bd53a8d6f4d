package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS from one Twilio number. Sends are paced to one
// message per second, the default throughput of a long code.
type TwilioSender struct {
	api     messageCreator
	from    string
	limiter *rate.Limiter
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, from)
}

func newTwilioSender(api messageCreator, from string) *TwilioSender {
	return &TwilioSender{
		api:     api,
		from:    from,
		limiter: rate.NewLimiter(rate.Limit(1), 4),
	}
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limiter: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	return nil
}
