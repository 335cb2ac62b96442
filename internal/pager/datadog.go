package pager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// datadogStreamEvent is the Datadog Events API payload shape; a `text` beginning with
// `@pagerduty` is the Datadog-side trigger convention for onward PagerDuty delivery (§6).
type datadogStreamEvent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DatadogSink posts a stream event to the Datadog Events API. Grounded on the teacher's
// notifySlack/notifyDiscord: a bare http.Client POST, no SDK.
type DatadogSink struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDatadogSink builds a sink against apiKey/site (e.g. "datadoghq.com").
func NewDatadogSink(apiKey, site string) *DatadogSink {
	if site == "" {
		site = "datadoghq.com"
	}
	return &DatadogSink{
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://api.%s/api/v1/events", site),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// newDatadogSinkWithURL is used by tests to point the sink at an httptest server.
func newDatadogSinkWithURL(apiKey, url string) *DatadogSink {
	return &DatadogSink{apiKey: apiKey, baseURL: url, client: &http.Client{Timeout: 5 * time.Second}}
}

// Notify posts text, prefixed with the @pagerduty trigger token, as a Datadog stream event.
func (s *DatadogSink) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(datadogStreamEvent{
		Title: "cosmon page",
		Text:  "@pagerduty " + text,
	})
	if err != nil {
		return fmt.Errorf("marshal datadog event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build datadog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to datadog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("datadog events api returned %d", resp.StatusCode)
	}
	return nil
}
