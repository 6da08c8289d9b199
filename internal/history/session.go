package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nemanja-m/mrhistory/internal/shared/logging"
	"github.com/nemanja-m/mrhistory/internal/shared/metrics"
)

const (
	// Each worker picks its rotation interval in
	// [MinRotationInterval, MinRotationInterval+RotationJitter) so that
	// workers started together do not re-authenticate together.
	MinRotationInterval = 30 * time.Minute
	RotationJitter      = 3 * time.Minute

	DefaultTimeout = 30 * time.Second
)

type SessionOptions struct {
	Authenticator Authenticator
	Timeout       time.Duration
	// RateLimit caps requests per second issued by this session. Zero
	// disables pacing.
	RateLimit float64
	Metrics   *metrics.Metrics
	Logger    logging.Logger

	// Transport, Now and Rand are replaced in tests.
	Transport http.RoundTripper
	Now       func() time.Time
	Rand      *rand.Rand
}

// Token is one issued credential. A fresh token is unauthenticated until
// the first request through the session performs the handshake.
type Token struct {
	ID            uuid.UUID
	Value         string
	IssuedAt      time.Time
	authenticated bool
}

// Session is the authenticated connection context of one worker. It is not
// safe for concurrent use: every worker owns exactly one Session and issues
// its requests sequentially.
type Session struct {
	workerID int
	root     *url.URL
	auth     Authenticator
	timeout  time.Duration
	limiter  *rate.Limiter

	transport http.RoundTripper
	now       func() time.Time
	rng       *rand.Rand

	metrics *metrics.Metrics
	logger  logging.Logger

	client   *http.Client
	token    *Token
	interval time.Duration
}

func NewSession(workerID int, root *url.URL, opts SessionOptions) *Session {
	s := &Session{
		workerID:  workerID,
		root:      root,
		auth:      opts.Authenticator,
		timeout:   opts.Timeout,
		transport: opts.Transport,
		now:       opts.Now,
		rng:       opts.Rand,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
	if s.auth == nil {
		s.auth = NoAuth{}
	}
	if s.timeout == 0 {
		s.timeout = DefaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(workerID)))
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.logger = s.logger.With("worker_id", workerID)
	if opts.RateLimit > 0 {
		burst := max(1, int(opts.RateLimit))
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

func (s *Session) WorkerID() int {
	return s.workerID
}

// Token returns a copy of the current token, or nil before the first request.
func (s *Session) Token() *Token {
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// RotationInterval is zero until the first token is issued and fixed after.
func (s *Session) RotationInterval() time.Duration {
	return s.interval
}

// GetJSON fetches ep and decodes the response body into v, issuing a token
// first if the session has none.
func (s *Session) GetJSON(ctx context.Context, ep Endpoint, v any) error {
	if err := s.ensureToken(ctx); err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.String(), nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", ep.Resource, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.observe(ep.Resource, "error", time.Since(start))
		return fmt.Errorf("GET %s: %w", ep, err)
	}
	// Drain before close so the keep-alive connection goes back to the pool.
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	s.observe(ep.Resource, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseHTTPError(resp, ep.String())
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, ep.Resource, err)
	}
	return nil
}

// MaybeRotate discards the token and its HTTP client once the rotation
// interval has elapsed since issuance. The replacement token is stamped with
// the current time and authenticates on the next request. Reports whether a
// rotation happened.
func (s *Session) MaybeRotate() bool {
	if s.token == nil {
		return false
	}
	now := s.now()
	if now.Sub(s.token.IssuedAt) <= s.interval {
		return false
	}

	old := s.token.ID
	s.issue(now)
	if s.metrics != nil {
		s.metrics.SessionRotations.Inc()
	}
	s.logger.Info("Rotated session token",
		"old_session_id", old.String(),
		"session_id", s.token.ID.String(),
	)
	return true
}

func (s *Session) ensureToken(ctx context.Context) error {
	if s.token == nil {
		s.issue(s.now())
		s.logger.Info("Issued session token",
			"session_id", s.token.ID.String(),
			"rotation_interval_min", s.interval.Minutes(),
		)
	}
	if s.token.authenticated {
		return nil
	}

	if err := s.auth.Authenticate(ctx, s.client, s.root); err != nil {
		if !errors.Is(err, ErrAuthentication) {
			err = fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return fmt.Errorf("session %s: %w", s.token.ID, err)
	}
	s.token.Value = tokenFromJar(s.client.Jar, s.root)
	s.token.authenticated = true
	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	s.logger.Debug("Authenticated session", "session_id", s.token.ID.String())
	return nil
}

// issue replaces the token and the client holding its cookie. The rotation
// interval is chosen on first issuance only.
func (s *Session) issue(now time.Time) {
	if s.interval == 0 {
		s.interval = MinRotationInterval + time.Duration(s.rng.Int64N(int64(RotationJitter)))
	}
	s.client = s.newClient()
	s.token = &Token{ID: uuid.New(), IssuedAt: now}
}

func (s *Session) newClient() *http.Client {
	// cookiejar.New only fails on a broken PublicSuffixList, and we pass none.
	jar, _ := cookiejar.New(nil)
	return &http.Client{
		Jar:       jar,
		Timeout:   s.timeout,
		Transport: s.transport,
	}
}

func (s *Session) observe(resource Resource, status string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveRemoteCall(string(resource), status, elapsed)
	}
}

// Verify checks that the history server accepts connections at all. Any
// HTTP response counts as reachable.
func Verify(ctx context.Context, client *http.Client, root Endpoint) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, root.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	resp.Body.Close()
	return nil
}
