// Package alert delivers outbound notifications via the Twilio WhatsApp
// messaging API.
package alert

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioSink sends WhatsApp messages through the Twilio REST API. With no
// credentials configured every Send is a silent no-op.
type TwilioSink struct {
	accountSID string
	authToken  string
	from       string
	to         string
	baseURL    string
	client     *http.Client
	enabled    bool
}

// NewTwilioSink creates the sink; empty accountSID disables it.
func NewTwilioSink(accountSID, authToken, from, to string) *TwilioSink {
	return &TwilioSink{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    accountSID != "" && authToken != "",
	}
}

// Send posts one message. Errors are for the caller to log; they carry no
// trading significance.
func (s *TwilioSink) Send(message string) error {
	if !s.enabled {
		return nil
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	form := url.Values{}
	form.Set("Body", message)
	form.Set("From", s.from)
	form.Set("To", s.to)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}
	return nil
}
