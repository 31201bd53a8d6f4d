// Package notify sends booking confirmations to the customer and the booked
// team member by email and SMS.
package notify

import (
	"context"
	"fmt"
	"sync"

	"svstudio/internal/metrics"
	"svstudio/internal/models"

	"github.com/rs/zerolog"
)

type Channel string

const (
	CustomerEmail Channel = "customer_email"
	CustomerSMS   Channel = "customer_sms"
	MemberEmail   Channel = "member_email"
	MemberSMS     Channel = "member_sms"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one channel.
type Result struct {
	Channel   Channel
	Status    Status
	Recipient string
	Reason    string
	Err       error
}

// Report collects the outcome of every channel of one dispatch.
type Report struct {
	Results []Result
}

// Get returns the result for ch.
func (r Report) Get(ch Channel) (Result, bool) {
	for _, res := range r.Results {
		if res.Channel == ch {
			return res, true
		}
	}
	return Result{}, false
}

func (r Report) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r Report) Sent() int   { return r.count(StatusSent) }
func (r Report) Failed() int { return r.count(StatusFailed) }

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Contact is how a team member is reached.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Dispatcher sends the four booking messages concurrently. A nil sender
// disables its channel. Errors and panics are recorded in the Report and
// never returned.
type Dispatcher struct {
	email     EmailSender
	sms       SMSSender
	directory map[string]Contact
	messages  Messages
	logger    *zerolog.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, directory map[string]Contact, messages Messages, logger *zerolog.Logger) *Dispatcher {
	l := logger.With().Str("component", "notify").Logger()
	if directory == nil {
		directory = map[string]Contact{}
	}
	return &Dispatcher{
		email:     email,
		sms:       sms,
		directory: directory,
		messages:  messages,
		logger:    &l,
	}
}

type task struct {
	channel   Channel
	recipient string
	skip      string
	send      func(ctx context.Context) error
}

func (d *Dispatcher) Notify(ctx context.Context, b *models.Booking) Report {
	tasks := d.tasks(b)
	results := make([]Result, len(tasks))

	var wg sync.WaitGroup
	for i, t := range tasks {
		if t.skip != "" {
			results[i] = Result{Channel: t.channel, Status: StatusSkipped, Recipient: t.recipient, Reason: t.skip}
			continue
		}
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			results[i] = d.run(ctx, t)
		}(i, t)
	}
	wg.Wait()

	report := Report{Results: results}
	for _, res := range report.Results {
		metrics.IncNotification(string(res.Channel), string(res.Status))
		switch res.Status {
		case StatusFailed:
			d.logger.Warn().Err(res.Err).
				Str("channel", string(res.Channel)).
				Str("recipient", res.Recipient).
				Str("member", b.Member).
				Str("date", b.Date).
				Msg("notification failed")
		case StatusSkipped:
			d.logger.Debug().Str("channel", string(res.Channel)).Str("reason", res.Reason).Msg("notification skipped")
		}
	}
	return report
}

func (d *Dispatcher) run(ctx context.Context, t task) (res Result) {
	res = Result{Channel: t.channel, Recipient: t.recipient, Status: StatusSent}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := t.send(ctx); err != nil {
		res.Status = StatusFailed
		res.Err = err
	}
	return res
}

func (d *Dispatcher) tasks(b *models.Booking) []task {
	contact, known := d.directory[b.Member]

	customerEmail := task{channel: CustomerEmail, recipient: b.Email}
	customerSMS := task{channel: CustomerSMS, recipient: b.Phone}
	memberEmail := task{channel: MemberEmail, recipient: contact.Email}
	memberSMS := task{channel: MemberSMS, recipient: contact.Phone}

	if d.email == nil {
		customerEmail.skip = "email not configured"
		memberEmail.skip = "email not configured"
	}
	if d.sms == nil {
		customerSMS.skip = "sms not configured"
		memberSMS.skip = "sms not configured"
	}
	if !known {
		d.logger.Info().Str("member", b.Member).Msg("no contact info for team member")
		memberEmail.skip = "no contact info for team member"
		memberSMS.skip = "no contact info for team member"
	}

	for _, t := range []*task{&customerEmail, &customerSMS, &memberEmail, &memberSMS} {
		if t.skip == "" && t.recipient == "" {
			t.skip = "no recipient"
		}
	}

	customerEmail.send = func(ctx context.Context) error {
		subject, html, err := d.messages.CustomerEmail(b)
		if err != nil {
			return err
		}
		return d.email.SendEmail(ctx, b.Email, subject, html)
	}
	customerSMS.send = func(ctx context.Context) error {
		text, err := d.messages.CustomerSMS(b)
		if err != nil {
			return err
		}
		return d.sms.SendSMS(ctx, b.Phone, text)
	}
	memberEmail.send = func(ctx context.Context) error {
		subject, html, err := d.messages.MemberEmail(b, contact)
		if err != nil {
			return err
		}
		return d.email.SendEmail(ctx, contact.Email, subject, html)
	}
	memberSMS.send = func(ctx context.Context) error {
		text, err := d.messages.MemberSMS(b)
		if err != nil {
			return err
		}
		return d.sms.SendSMS(ctx, contact.Phone, text)
	}

	return []task{customerEmail, customerSMS, memberEmail, memberSMS}
}
