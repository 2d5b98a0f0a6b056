// Package classifier calls the externally hosted readmission model over HTTP.
package classifier

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/engine"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

// Client implements engine.Model against the model server.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

type predictRequest struct {
	FeatureNames []string  `json:"feature_names"`
	Features     []float64 `json:"features"`
}

type predictResponse struct {
	Probability *float64 `json:"probability"`
}

type featuresResponse struct {
	FeatureNames []string `json:"feature_names"`
}

// New creates a Client. A zero timeout defaults to 5 seconds.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   client,
		logger: logger.With().Str("component", "classifier").Logger(),
	}
}

// PredictProbability posts the feature vector and returns the positive-class probability.
func (c *Client) PredictProbability(ctx context.Context, fv engine.FeatureVector) (float64, error) {
	var out predictResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(predictRequest{FeatureNames: fv.Names, Features: fv.Values}).
		SetResult(&out).
		SetPathParam("condition", string(fv.Condition)).
		Post("/v1/models/{condition}/predict")
	if err != nil {
		return 0, fmt.Errorf("call model: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn().
			Int("status_code", resp.StatusCode()).
			Str("condition", string(fv.Condition)).
			Msg("model server returned error")
		return 0, fmt.Errorf("model server status %d", resp.StatusCode())
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("model response missing probability")
	}
	p := *out.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("model probability %v outside [0,1]", p)
	}
	return p, nil
}

// FeatureNames fetches the model's expected column order for condition.
func (c *Client) FeatureNames(ctx context.Context, condition engine.ConditionType) ([]string, error) {
	var out featuresResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("condition", string(condition)).
		Get("/v1/models/{condition}/features")
	if err != nil {
		return nil, fmt.Errorf("fetch feature names: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, engine.ErrFeatureNamesUnavailable
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model server status %d", resp.StatusCode())
	}
	if len(out.FeatureNames) == 0 {
		return nil, engine.ErrFeatureNamesUnavailable
	}
	return out.FeatureNames, nil
}
