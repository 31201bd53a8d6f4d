package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"svstudio/internal/models"
)

const (
	longDateLayout = "Monday, January 2, 2006"
	clockLayout    = "3:04 PM"
)

var customerEmailTmpl = template.Must(template.New("customer").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c3e50;">Booking Confirmed!</h2>
  <p>Dear {{.Customer}},</p>
  <p>Your booking with {{.Studio}} has been confirmed. Here are the details:</p>
  <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #2c3e50;">Booking Details</h3>
    <p><strong>Team Member:</strong> {{.Member}}</p>
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Time:</strong> {{.StartTime}} - {{.EndTime}}</p>
    <p><strong>Duration:</strong> {{.Duration}}</p>
    <p><strong>Studio:</strong> {{.Room}}</p>
  </div>
  <p>If you need to make any changes or have questions, please contact us at {{.ContactEmail}}.</p>
  <p>Thank you for choosing {{.Studio}}!</p>
</div>
`))

var memberEmailTmpl = template.Must(template.New("member").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c3e50;">New Booking Assigned</h2>
  <p>Hi {{.MemberName}},</p>
  <p>You have a new booking scheduled. Here are the details:</p>
  <div style="background: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #2c3e50;">Booking Details</h3>
    <p><strong>Client:</strong> {{.Customer}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Phone:</strong> {{.Phone}}</p>
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Time:</strong> {{.StartTime}} - {{.EndTime}}</p>
    <p><strong>Duration:</strong> {{.Duration}}</p>
    <p><strong>Studio:</strong> {{.Room}}</p>
  </div>
  <p>Please prepare for this session and contact the client if needed.</p>
  <p>Best regards,<br>{{.Studio}} Booking System</p>
</div>
`))

// Messages renders notification text for one studio.
type Messages struct {
	Studio       string
	ContactEmail string
	Location     *time.Location
}

type messageData struct {
	Studio       string
	ContactEmail string
	Member       string
	MemberName   string
	Customer     string
	Email        string
	Phone        string
	Date         string
	StartTime    string
	EndTime      string
	Duration     string
	Hours        int
	Room         string
}

func (m Messages) data(b *models.Booking) (messageData, error) {
	loc := m.Location
	if loc == nil {
		loc = time.Local
	}
	start, err := b.StartTime(loc)
	if err != nil {
		return messageData{}, fmt.Errorf("booking date %q: %w", b.Date, err)
	}
	end := start.Add(time.Duration(b.Duration) * time.Hour)

	duration := fmt.Sprintf("%d hour", b.Duration)
	if b.Duration > 1 {
		duration += "s"
	}
	room := b.Studio
	if room == "" {
		room = "TBD"
	}

	return messageData{
		Studio:       m.Studio,
		ContactEmail: m.ContactEmail,
		Member:       b.Member,
		MemberName:   b.Member,
		Customer:     b.Customer,
		Email:        b.Email,
		Phone:        b.Phone,
		Date:         start.Format(longDateLayout),
		StartTime:    start.Format(clockLayout),
		EndTime:      end.Format(clockLayout),
		Duration:     duration,
		Hours:        b.Duration,
		Room:         room,
	}, nil
}

func render(t *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m Messages) CustomerEmail(b *models.Booking) (string, string, error) {
	data, err := m.data(b)
	if err != nil {
		return "", "", err
	}
	html, err := render(customerEmailTmpl, data)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("Booking Confirmed - %s", m.Studio), html, nil
}

func (m Messages) MemberEmail(b *models.Booking, c Contact) (string, string, error) {
	data, err := m.data(b)
	if err != nil {
		return "", "", err
	}
	if c.Name != "" {
		data.MemberName = c.Name
	}
	html, err := render(memberEmailTmpl, data)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("New Booking - %s", b.Customer), html, nil
}

func (m Messages) CustomerSMS(b *models.Booking) (string, error) {
	d, err := m.data(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: Booking confirmed! %s on %s at %s. Duration: %dhr. Studio: %s",
		d.Studio, d.Member, d.Date, d.StartTime, d.Hours, d.Room), nil
}

func (m Messages) MemberSMS(b *models.Booking) (string, error) {
	d, err := m.data(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: New booking! Client: %s (%s) on %s at %s. %dhr session.",
		d.Studio, d.Customer, d.Phone, d.Date, d.StartTime, d.Hours), nil
}
