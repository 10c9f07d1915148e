package printers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cafe/internal/core/domain/model/printing"
	"cafe/internal/core/ports"
)

const (
	// DefaultCloudTimeout bounds one request to the cloud print API.
	DefaultCloudTimeout = 10 * time.Second

	cloudJobsPath   = "/printjobs"
	cloudSource     = "cafe-print-dispatch"
	maxErrorBodyLen = 512
)

type cloudJobRequest struct {
	Printer     string `json:"printer"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
	Source      string `json:"source"`
}

// CloudTransport submits ESC/POS jobs to a hosted print API. The API key is
// resolved from the merchant's credential reference on every send and is
// never kept by the transport.
type CloudTransport struct {
	baseURL     string
	credentials ports.CredentialResolver
	httpClient  *http.Client
}

type CloudOption func(*CloudTransport)

func WithHTTPClient(c *http.Client) CloudOption {
	return func(t *CloudTransport) { t.httpClient = c }
}

func NewCloudTransport(baseURL string, credentials ports.CredentialResolver, opts ...CloudOption) *CloudTransport {
	t := &CloudTransport{
		baseURL:     strings.TrimRight(baseURL, "/"),
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: DefaultCloudTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *CloudTransport) Kind() printing.TransportKind { return printing.CloudAPI }

// Send posts the job and returns the job id the API assigned.
func (t *CloudTransport) Send(ctx context.Context, printer printing.PrinterConfig, ticket printing.Ticket) (ports.JobID, error) {
	apiKey, err := t.credentials.Resolve(ctx, ticket.MerchantID, printer.CredentialRef())
	if err != nil {
		return "", transportError(printer, fmt.Errorf("resolve credential: %w", err))
	}

	body, err := json.Marshal(cloudJobRequest{
		Printer:     printer.Address(),
		Title:       ticket.Title(),
		ContentType: "raw_base64",
		Content:     base64.StdEncoding.EncodeToString(EncodeESCPOS(printer, ticket)),
		Source:      cloudSource,
	})
	if err != nil {
		return "", transportError(printer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+cloudJobsPath, bytes.NewReader(body))
	if err != nil {
		return "", transportError(printer, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(apiKey, "")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", transportError(printer, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", transportError(printer, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBodyLen {
			msg = msg[:maxErrorBodyLen]
		}
		return "", transportError(printer, fmt.Errorf("cloud print api returned %d: %s", resp.StatusCode, msg))
	}

	jobID, err := parseJobID(raw)
	if err != nil {
		return "", transportError(printer, err)
	}
	return jobID, nil
}

// parseJobID accepts the bare job id the API answers with, either a JSON
// number or a JSON string.
func parseJobID(raw []byte) (ports.JobID, error) {
	var id any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&id); err != nil {
		return "", fmt.Errorf("decode job id: %w", err)
	}

	switch v := id.(type) {
	case json.Number:
		return ports.JobID("cloud-" + v.String()), nil
	case string:
		if v == "" {
			return "", fmt.Errorf("empty job id")
		}
		return ports.JobID("cloud-" + v), nil
	default:
		return "", fmt.Errorf("unexpected job id %s", strings.TrimSpace(string(raw)))
	}
}
