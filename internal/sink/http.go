package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

type httpSink struct {
	client *http.Client
	url    string
	token  string
}

// postPayload mirrors the remote endpoint's batch contract.
type postPayload struct {
	DeviceID    string       `json:"device_id"`
	DeviceModel string       `json:"device_model"`
	DeviceName  string       `json:"device_name"`
	Records     []postRecord `json:"records"`
}

type postRecord struct {
	EmployeeID string `json:"employee_id"`
	Timestamp  string `json:"timestamp"`
	EventType  int    `json:"event_type"`
	EventMinor int    `json:"event_minor"`
}

type lastSyncResponse struct {
	LastSync *string `json:"last_sync"`
}

func newHTTPSink(rawURL, token string, client *http.Client) (Sink, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "?")
	if trimmed == "" {
		return nil, pkgerrors.New("sink: api url is empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New("sink: api key is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &httpSink{client: client, url: trimmed, token: strings.TrimSpace(token)}, nil
}

func (s *httpSink) LastSyncedTime(ctx context.Context, deviceModel, deviceSerial string) (time.Time, bool, error) {
	query := url.Values{}
	query.Set("device_serial", deviceSerial)
	query.Set("device_model", deviceModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+query.Encode(), nil)
	if err != nil {
		return time.Time{}, false, &Error{Op: "last sync request", Err: err}
	}
	s.setHeaders(req)

	body, sinkErr := s.send(req, "last sync query")
	if sinkErr != nil {
		return time.Time{}, false, sinkErr
	}
	var decoded lastSyncResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return time.Time{}, false, &Error{Op: "last sync decode", Err: err}
	}
	if decoded.LastSync == nil || strings.TrimSpace(*decoded.LastSync) == "" {
		return time.Time{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339, *decoded.LastSync)
	if err != nil {
		return time.Time{}, false, &Error{Op: "last sync parse", Err: err}
	}
	return ts, true, nil
}

func (s *httpSink) Persist(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	payload := postPayload{
		DeviceID:    records[0].DeviceSerial,
		DeviceModel: records[0].DeviceModel,
		DeviceName:  records[0].DeviceName,
		Records:     make([]postRecord, 0, len(records)),
	}
	for _, record := range records {
		payload.Records = append(payload.Records, postRecord{
			EmployeeID: record.EmployeeID,
			Timestamp:  record.EventTime.Format(time.RFC3339),
			EventType:  record.EventType,
			EventMinor: record.EventMinor,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: "batch encode", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return &Error{Op: "batch request", Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	if _, sinkErr := s.send(req, "batch post"); sinkErr != nil {
		return sinkErr
	}
	return nil
}

func (s *httpSink) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
}

// send executes the request and maps transport failures and non-2xx
// responses to *Error, returning the raw body on success.
func (s *httpSink) send(req *http.Request, op string) ([]byte, *Error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Body: compactErrorBody(body)}
	}
	return body, nil
}

// compactErrorBody keeps structured error payloads readable in logs.
func compactErrorBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err == nil {
		return compact.String()
	}
	return trimmed
}

func (s *httpSink) Close() error {
	return nil
}

func (s *httpSink) Name() string {
	if s == nil || s.url == "" {
		return "http"
	}
	return "http:" + s.url
}
