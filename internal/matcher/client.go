package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AiPlugs/backend/internal/injection"
)

const matchPath = "/v1/match"

var (
	ErrStatus   = errors.New("matcher returned non-success status")
	ErrDecode   = errors.New("matcher response not decodable")
	ErrDisabled = errors.New("matcher port not assigned")
)

// Config locates the matcher backend
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
	// Breaker tracks backend health from query outcomes. It never skips a query.
	Breaker bool
}

// Endpoint returns the matcher base URL
func (c Config) Endpoint() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Result is the ordered list of scripts for one URL. Empty is valid.
type Result struct {
	Scripts []injection.Script `json:"scripts"`
}

// Empty reports whether there is nothing to inject
func (r Result) Empty() bool {
	return len(r.Scripts) == 0
}

type matchRequest struct {
	URL string `json:"url"`
}

type matchResponse struct {
	Scripts []wireScript `json:"scripts"`
}

type wireScript struct {
	URL    string          `json:"url"`
	RunAt  string          `json:"run_at"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Client queries the matcher backend. Every failure mode resolves to an
// empty Result; callers never see an error.
type Client struct {
	cfg     Config
	resty   *resty.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named("matcher")
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *monitoring.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New creates a matcher client. Each Match issues exactly one request.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	c := &Client{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	// Pooled transport only; a navigation gets exactly one attempt
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	c.resty = resty.New().
		SetBaseURL(cfg.Endpoint()).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "shellcore/1.0").
		SetTransport(retryClient.HTTPClient.Transport).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	if cfg.Breaker {
		c.breaker = resilience.New("matcher", resilience.Settings{
			Threshold: 3,
			Cooldown:  2 * time.Second,
			OnStateChange: func(name string, from, to resilience.State) {
				c.logger.Info("Matcher circuit state change",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			},
		})
	}
	return c
}

// Endpoint returns the matcher base URL
func (c *Client) Endpoint() string {
	return c.cfg.Endpoint()
}

// Enabled reports whether the matcher port is known
func (c *Client) Enabled() bool {
	return c.cfg.Port > 0
}

// Match returns the scripts for pageURL, or an empty Result on any failure.
func (c *Client) Match(ctx context.Context, pageURL string) Result {
	logger := c.logger.With(zap.String("url", pageURL))

	if !c.Enabled() {
		c.metrics.RecordMatch("disabled", 0)
		logger.Debug("Matcher unavailable", zap.Error(ErrDisabled))
		return Result{}
	}

	timer := monitoring.NewTimer(c.metrics)
	res, err := c.query(ctx, pageURL)
	c.observe(ctx, err)
	if err != nil {
		timer.Stop(classify(err))
		logger.Debug("Match query failed, treating as no scripts", zap.Error(err))
		return Result{}
	}

	timer.Stop("ok")
	logger.Debug("Match query succeeded", zap.Int("scripts", len(res.Scripts)))
	return res
}

// Health reports the tracked backend state: closed, half-open, open, or
// untracked when the breaker is off.
func (c *Client) Health() string {
	if c.breaker == nil {
		return "untracked"
	}
	return c.breaker.State().String()
}

func (c *Client) observe(ctx context.Context, err error) {
	if c.breaker == nil {
		return
	}
	if err != nil && ctx.Err() != nil {
		// Cancelled by the caller, says nothing about the backend
		return
	}
	c.breaker.Record(err)
}

func (c *Client) query(ctx context.Context, pageURL string) (Result, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(matchRequest{URL: pageURL}).
		Post(matchPath)
	if err != nil {
		return Result{}, fmt.Errorf("post %s: %w", matchPath, err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	if err := validateSize(resp.Body(), MaxResponseSize); err != nil {
		return Result{}, err
	}
	var body matchResponse
	if err := sonic.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(body.Scripts) > MaxScripts {
		return Result{}, fmt.Errorf("%w: %d scripts exceeds %d", ErrDecode, len(body.Scripts), MaxScripts)
	}
	return Result{Scripts: normalize(body.Scripts)}, nil
}

// normalize drops entries without a URL, defaults run_at to document_end and
// strips configs that are oversized or too deeply nested
func normalize(in []wireScript) []injection.Script {
	out := make([]injection.Script, 0, len(in))
	for _, s := range in {
		src := strings.TrimSpace(s.URL)
		if src == "" {
			continue
		}
		phase, ok := injection.ParsePhase(s.RunAt)
		if !ok {
			phase = injection.PhaseEnd
		}
		cfg := s.Config
		if validateConfig(cfg) != nil {
			cfg = nil
		}
		out = append(out, injection.Script{URL: src, Phase: phase, Config: cfg})
	}
	return out
}

func classify(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "error"
	}
}
