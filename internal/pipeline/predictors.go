package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jorge-redcloud/demand-planning/internal/evaluation"
	"github.com/jorge-redcloud/demand-planning/internal/pipelineconfig"
	"github.com/jorge-redcloud/demand-planning/pkg/httputil"
)

// Predictors builds the predictor list for model tags, in order.
// "remote" needs client and endpoint; it is wrapped with the retry/circuit predictor.
func Predictors(tags []string, client *httputil.Client, endpoint string, log zerolog.Logger) ([]evaluation.Predictor, error) {
	out := make([]evaluation.Predictor, 0, len(tags))
	for _, tag := range tags {
		if tag != pipelineconfig.ModelRemote {
			p, err := evaluation.BaselineByName(tag)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
			continue
		}

		if client == nil || endpoint == "" {
			return nil, fmt.Errorf("model %q requires MODEL_ENDPOINT_URL", tag)
		}
		remote := evaluation.NewHTTPPredictor(client, endpoint, tag)
		out = append(out, evaluation.NewRetryPredictor(remote, evaluation.DefaultRetryConfig(), log))
	}
	return out, nil
}
