package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioApiBase = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds the provider-specific part of the notifier
// configuration. FromNumber may carry the "whatsapp:" prefix to deliver via
// the WhatsApp channel instead of plain SMS.
type TwilioConfig struct {
	AccountSid string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

// TwilioSender delivers messages through the Twilio REST API. There is no
// maintained Twilio SDK dependency here, the API is a single form POST.
type TwilioSender struct {
	cfg    TwilioConfig
	client *http.Client
}

func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	return &TwilioSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *TwilioSender) Send(destination, body string) error {
	to := destination
	if strings.HasPrefix(s.cfg.FromNumber, "whatsapp:") && !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioApiBase, s.cfg.AccountSid)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSid, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio: unexpected status %s", resp.Status)
	}
	return nil
}

func (s *TwilioSender) Enabled() bool { return true }
