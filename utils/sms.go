package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taxnexy/config"
)

// SMSService sends SMS via the Twilio REST API.
type SMSService struct {
	AccountSID string
	AuthToken  string
	From       string
	Logger     *log.Logger
	client     *http.Client
}

func NewSMSService(logger *log.Logger) *SMSService {
	cfg := config.AppConfig
	return &SMSService{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioFrom,
		Logger:     logger,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether Twilio credentials are configured. SMS is an
// optional channel; callers skip it silently when disabled.
func (s *SMSService) Enabled() bool {
	return s.AccountSID != "" && s.AuthToken != "" && s.From != ""
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send delivers one SMS. Errors are transport failures and retryable.
func (s *SMSService) Send(ctx context.Context, to, body string) error {
	if !s.Enabled() {
		return fmt.Errorf("sms is not configured")
	}

	urlStr := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.AccountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", s.From)
	data.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, "POST", urlStr, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.AccountSID, s.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var tr twilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.Logger.Printf("SMS sent to %s (sid %s, status %s)", to, tr.SID, tr.Status)
		return nil
	}

	errorMsg := fmt.Sprintf("Twilio API error: %d", resp.StatusCode)
	if tr.Message != "" {
		errorMsg = fmt.Sprintf("%s - %s", errorMsg, tr.Message)
	}
	return fmt.Errorf("%s", errorMsg)
}

// SendDocumentRequestSMS texts the client their upload link.
func (s *SMSService) SendDocumentRequestSMS(ctx context.Context, to, firstName, link string) error {
	body := fmt.Sprintf("Hi %s, your tax preparer needs a few documents from you. Upload them securely here: %s", firstName, link)
	return s.Send(ctx, to, body)
}
