package history

import (
	"context"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/mrhistory/internal/historytest"
	"github.com/nemanja-m/mrhistory/internal/shared/metrics"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSession(t *testing.T, srv *historytest.Server, auth Authenticator, clock *fakeClock, m *metrics.Metrics) (*Session, *URLBuilder) {
	t.Helper()
	urls, err := NewURLBuilder(srv.URL)
	require.NoError(t, err)

	s := NewSession(3, urls.Root().URL, SessionOptions{
		Authenticator: auth,
		Timeout:       5 * time.Second,
		Metrics:       m,
		Now:           clock.Now,
		Rand:          rand.New(rand.NewPCG(1, 3)),
	})
	return s, urls
}

func TestSession_LazyTokenIssuance(t *testing.T) {
	srv := historytest.NewServer(historytest.WithPseudoAuth())
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, urls := newTestSession(t, srv, &PseudoAuthenticator{User: "hadoop"}, clock, nil)

	assert.Nil(t, s.Token())
	assert.Zero(t, s.RotationInterval())
	assert.False(t, s.MaybeRotate())

	var body map[string]any
	require.NoError(t, s.GetJSON(context.Background(), urls.Root(), &body))

	token := s.Token()
	require.NotNil(t, token)
	assert.Equal(t, clock.now, token.IssuedAt)
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, 1, srv.Auth.Issued())

	// The cookie is reused for later requests.
	require.NoError(t, s.GetJSON(context.Background(), urls.Root(), &body))
	assert.Equal(t, 1, srv.Auth.Issued())
}

func TestSession_RotationIntervalRange(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()

	for seed := range uint64(50) {
		urls, err := NewURLBuilder(srv.URL)
		require.NoError(t, err)
		s := NewSession(int(seed), urls.Root().URL, SessionOptions{
			Rand: rand.New(rand.NewPCG(seed, seed)),
		})

		var body map[string]any
		require.NoError(t, s.GetJSON(context.Background(), urls.Root(), &body))

		interval := s.RotationInterval()
		assert.GreaterOrEqual(t, interval, MinRotationInterval)
		assert.Less(t, interval, MinRotationInterval+RotationJitter)
	}
}

func TestSession_MaybeRotate(t *testing.T) {
	srv := historytest.NewServer(historytest.WithPseudoAuth())
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, urls := newTestSession(t, srv, &PseudoAuthenticator{User: "hadoop"}, clock, m)

	var body map[string]any
	require.NoError(t, s.GetJSON(context.Background(), urls.Root(), &body))
	first := s.Token()
	interval := s.RotationInterval()

	clock.Advance(interval)
	assert.False(t, s.MaybeRotate(), "rotation requires strictly more than the interval")
	assert.Equal(t, first.ID, s.Token().ID)

	clock.Advance(time.Second)
	assert.True(t, s.MaybeRotate())
	rotated := s.Token()
	assert.NotEqual(t, first.ID, rotated.ID)
	assert.Equal(t, clock.now, rotated.IssuedAt)
	assert.Empty(t, rotated.Value)
	assert.Equal(t, interval, s.RotationInterval(), "interval is fixed per session")

	assert.False(t, s.MaybeRotate(), "a fresh token is not rotated again")

	// The new token authenticates on the next request.
	require.NoError(t, s.GetJSON(context.Background(), urls.Root(), &body))
	assert.Equal(t, 2, srv.Auth.Issued())
	assert.NotEmpty(t, s.Token().Value)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionRotations))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TokensIssued))
}

func TestSession_AuthenticationErrors(t *testing.T) {
	t.Run("rejected without credentials", func(t *testing.T) {
		srv := historytest.NewServer(historytest.WithPseudoAuth())
		defer srv.Close()

		clock := &fakeClock{now: time.Now()}
		s, urls := newTestSession(t, srv, NoAuth{}, clock, nil)

		var body map[string]any
		err := s.GetJSON(context.Background(), urls.Root(), &body)
		require.ErrorIs(t, err, ErrAuthentication)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
		assert.Equal(t, "AuthenticationException", httpErr.Exception)
	})

	t.Run("handshake refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		urls, err := NewURLBuilder(srv.URL)
		require.NoError(t, err)
		s := NewSession(0, urls.Root().URL, SessionOptions{
			Authenticator: &PseudoAuthenticator{User: "mallory"},
		})

		var body map[string]any
		err = s.GetJSON(context.Background(), urls.Root(), &body)
		require.ErrorIs(t, err, ErrAuthentication)
		require.NotNil(t, s.Token())
		assert.Contains(t, err.Error(), s.Token().ID.String())
	})
}

func TestSession_GetJSONErrors(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()

	clock := &fakeClock{now: time.Now()}
	s, urls := newTestSession(t, srv, NoAuth{}, clock, nil)

	var resp jobResponse
	err := s.GetJSON(context.Background(), urls.Job("job_0_0000"), &resp)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "NotFoundException", httpErr.Exception)
	assert.NotErrorIs(t, err, ErrAuthentication)
}

func TestSession_GetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job": [`))
	}))
	defer srv.Close()

	urls, err := NewURLBuilder(srv.URL)
	require.NoError(t, err)
	s := NewSession(0, urls.Root().URL, SessionOptions{})

	var resp jobResponse
	err = s.GetJSON(context.Background(), urls.Job("job_1_1"), &resp)
	require.ErrorIs(t, err, ErrDecode)
}

func TestSession_ReusesConnection(t *testing.T) {
	payload := `{"conf": {"path": "/", "property": [{"name": "k", "value": "` + strings.Repeat("v", 20000) + `"}]}}`
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	var opened atomic.Int32
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			opened.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	urls, err := NewURLBuilder(srv.URL)
	require.NoError(t, err)
	s := NewSession(0, urls.Root().URL, SessionOptions{})

	for range 20 {
		var resp confResponse
		require.NoError(t, s.GetJSON(context.Background(), urls.Conf("job_1_1"), &resp))
	}
	assert.Equal(t, int32(1), opened.Load())
}

func TestSession_RateLimit(t *testing.T) {
	srv := historytest.NewServer()
	defer srv.Close()

	urls, err := NewURLBuilder(srv.URL)
	require.NoError(t, err)
	s := NewSession(0, urls.Root().URL, SessionOptions{RateLimit: 1})

	ctx, cancel := context.WithCancel(context.Background())
	var body map[string]any
	require.NoError(t, s.GetJSON(ctx, urls.Root(), &body))

	// The single-token bucket is empty, so a cancelled context fails the wait.
	cancel()
	err = s.GetJSON(ctx, urls.Root(), &body)
	require.ErrorIs(t, err, context.Canceled)
}

func TestVerify(t *testing.T) {
	srv := historytest.NewServer(historytest.WithPseudoAuth())
	urls, err := NewURLBuilder(srv.URL)
	require.NoError(t, err)

	// A 401 still proves the server is there.
	require.NoError(t, Verify(context.Background(), srv.Client(), urls.Root()))

	srv.Close()
	err = Verify(context.Background(), &http.Client{Timeout: time.Second}, urls.Root())
	require.ErrorIs(t, err, ErrServiceUnreachable)
}

func TestNewAuthenticator(t *testing.T) {
	a, err := NewAuthenticator("none", "")
	require.NoError(t, err)
	assert.IsType(t, NoAuth{}, a)

	a, err = NewAuthenticator("simple", "hadoop")
	require.NoError(t, err)
	assert.Equal(t, &PseudoAuthenticator{User: "hadoop"}, a)

	_, err = NewAuthenticator("simple", "")
	require.Error(t, err)

	_, err = NewAuthenticator("kerberos", "hadoop")
	require.Error(t, err)
}
