// Package submit delivers the finished session payload to the external
// crowdsourcing endpoint. One POST, no acknowledgement contract, no retry.
package submit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pkoster/pairchoice/internal/models"
)

// DefaultTimeout bounds the single submission request.
const DefaultTimeout = 30 * time.Second

// HTTPSubmitter posts the payload as JSON.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// NewHTTPSubmitter builds a submitter for the given endpoint.
func NewHTTPSubmitter(endpoint string, timeout time.Duration, log *slog.Logger) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSubmitter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Submit fires the payload at the endpoint. Failures are logged and
// swallowed; the experiment has no recovery path for them.
func (s *HTTPSubmitter) Submit(payload models.Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to encode submission payload", "error", err)
		return
	}

	s.log.Info("submitting results",
		"session", payload.SessionID,
		"trials", len(payload.Trials),
		"events", len(payload.Events),
		"size", humanize.Bytes(uint64(len(body))))

	resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		s.log.Error("submission failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		s.log.Warn("submission endpoint returned non-success status", "status", resp.StatusCode)
		return
	}
	s.log.Info("submission delivered", "status", resp.StatusCode)
}
