package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jorge-redcloud/demand-planning/pkg/httputil"
)

// HTTPPredictor calls a remote model: POST {endpoint}/predict with a PredictRequest body.
// The model answers {"prediction": <number|null>}.
type HTTPPredictor struct {
	client   *httputil.Client
	endpoint string
	tag      string
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
	Error      string   `json:"error,omitempty"`
}

// NewHTTPPredictor creates a remote predictor tagged tag
func NewHTTPPredictor(client *httputil.Client, endpoint, tag string) *HTTPPredictor {
	if tag == "" {
		tag = "remote"
	}
	return &HTTPPredictor{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		tag:      tag,
	}
}

// Name returns the model tag
func (h *HTTPPredictor) Name() string { return h.tag }

// Predict sends one feature row. 404/422 and a null prediction mean "no forecast for this row".
func (h *HTTPPredictor) Predict(ctx context.Context, req PredictRequest) (float64, error) {
	resp, err := h.client.PostJSON(ctx, h.endpoint+"/predict", req)
	if err != nil {
		return 0, fmt.Errorf("predict %s %s: %w", req.EntityID, req.Target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, unavailable(req, fmt.Sprintf("model returned %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("predict %s %s: status %d: %s", req.EntityID, req.Target, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}
	if out.Prediction == nil || !finite(*out.Prediction) {
		return 0, unavailable(req, "no prediction in response")
	}

	return *out.Prediction, nil
}
