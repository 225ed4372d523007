package knowledge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factsBody = `{
  "head": {"vars": ["country","countryLabel","capital","capitalLabel","population","thumbnail"]},
  "results": {"bindings": [
    {
      "country": {"type": "uri", "value": "http://dbpedia.org/resource/Vietnam"},
      "countryLabel": {"type": "literal", "xml:lang": "en", "value": "Vietnam"},
      "capital": {"type": "uri", "value": "http://dbpedia.org/resource/Hanoi"},
      "capitalLabel": {"type": "literal", "xml:lang": "en", "value": "Hanoi"},
      "population": {"type": "typed-literal", "value": "96208984"},
      "thumbnail": {"type": "uri", "value": "http://commons.wikimedia.org/vn.png"}
    },
    {
      "country": {"type": "uri", "value": "http://dbpedia.org/resource/Laos"},
      "countryLabel": {"type": "literal", "value": "Laos"},
      "population": {"type": "literal", "value": "about seven million"}
    },
    {
      "countryLabel": {"type": "literal", "value": "Nowhere"}
    },
    {
      "country": {"type": "uri", "value": "http://dbpedia.org/resource/Blank"},
      "countryLabel": {"type": "literal", "value": "   "}
    }
  ]}
}`

const capitalsBody = `{"results": {"bindings": [
  {"capitalLabel": {"value": "Hanoi"}},
  {"capitalLabel": {"value": " "}},
  {},
  {"capitalLabel": {"value": "Bangkok"}}
]}}`

// newTestClient points a Client at srv with zero backoff so retry tests run
// instantly.
func newTestClient(srv *httptest.Server, maxRetries int) *Client {
	logger, _ := test.NewNullLogger()
	c := New(Config{Endpoint: srv.URL, MaxRetries: maxRetries},
		WithHTTPClient(srv.Client()),
		WithLogger(logger),
	)
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func statusServer(t *testing.T, calls *atomic.Int32, statuses ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		if status == http.StatusOK {
			_, _ = io.WriteString(w, factsBody)
			return
		}
		http.Error(w, "busy", status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFacts_ParsesRows(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusOK)
	c := newTestClient(srv, 2)

	facts, err := c.FetchFacts(context.Background(), 16)
	require.NoError(t, err)
	require.Len(t, facts, 2, "rows without a country IRI or label are dropped")

	vn := facts[0]
	assert.Equal(t, "http://dbpedia.org/resource/Vietnam", vn.SubjectURI)
	assert.Equal(t, "Vietnam", vn.SubjectLabel)
	assert.Equal(t, "Hanoi", vn.RelatedLabel)
	assert.Equal(t, "http://dbpedia.org/resource/Hanoi", vn.RelatedURI)
	assert.Equal(t, "http://commons.wikimedia.org/vn.png", vn.ImageURL)
	require.NotNil(t, vn.Population)
	assert.EqualValues(t, 96208984, *vn.Population)

	laos := facts[1]
	assert.False(t, laos.HasCapital())
	assert.Nil(t, laos.Population, "unparseable population becomes absent")
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetchDecoyLabels_DropsBlankRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, capitalsBody)
	}))
	defer srv.Close()

	labels, err := newTestClient(srv, 0).FetchDecoyLabels(context.Background(), 32)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hanoi", "Bangkok"}, labels)
}

func TestRequestShape(t *testing.T) {
	var gotForm url.Values
	var gotAccept, gotContentType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotForm = r.PostForm
		_, _ = io.WriteString(w, capitalsBody)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).FetchDecoyLabels(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/sparql-results+json", gotAccept)
	assert.Contains(t, gotContentType, "application/x-www-form-urlencoded")
	assert.Equal(t, "application/sparql-results+json", gotForm.Get("format"))
	assert.Contains(t, gotForm.Get("query"), "SELECT DISTINCT ?capitalLabel")
	assert.Contains(t, gotForm.Get("query"), "LIMIT 7")
}

func TestRetry_Always503ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusServiceUnavailable)

	_, err := newTestClient(srv, 2).FetchFacts(context.Background(), 16)
	require.Error(t, err)

	var statusErr *RemoteStatusError
	require.True(t, errors.As(err, &statusErr), "expected RemoteStatusError, got %T", err)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, 3, statusErr.Attempts)
	assert.EqualValues(t, 3, calls.Load(), "1 attempt + 2 retries")
}

func TestRetry_ZeroRetriesFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusInternalServerError)

	_, err := newTestClient(srv, 0).FetchFacts(context.Background(), 16)

	var statusErr *RemoteStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetry_TerminalClientError(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusBadRequest)

	_, err := newTestClient(srv, 2).FetchFacts(context.Background(), 16)

	var statusErr *RemoteStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "busy")
	assert.EqualValues(t, 1, calls.Load(), "4xx other than 429 is not retried")
}

func TestRetry_RateLimitThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusOK)

	facts, err := newTestClient(srv, 2).FetchFacts(context.Background(), 16)
	require.NoError(t, err)
	assert.Len(t, facts, 2)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetry_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c := newTestClient(srv, 1)
	srv.Close() // nothing listens any more

	_, err := c.FetchFacts(context.Background(), 16)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 2, transportErr.Attempts)
}

func TestMalformedBodyNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).FetchFacts(context.Background(), 16)

	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMissingBindingsIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"head": {}, "results": {}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).FetchDecoyLabels(context.Background(), 4)

	var malformed *MalformedDataError
	require.ErrorAs(t, err, &malformed)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	srv := statusServer(t, &calls, http.StatusServiceUnavailable)
	c := newTestClient(srv, 5)
	c.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchFacts(ctx, 16)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, calls.Load())
}

func TestBackoffBounds(t *testing.T) {
	cases := []struct {
		attempt int
		base    time.Duration
	}{
		{1, 300 * time.Millisecond},
		{2, 600 * time.Millisecond},
		{3, 1200 * time.Millisecond},
		{4, 2400 * time.Millisecond},
		{5, 4 * time.Second},
		{12, 4 * time.Second},
	}
	for _, tc := range cases {
		for range 50 {
			got := Backoff(tc.attempt)
			if got < tc.base || got >= tc.base+200*time.Millisecond {
				t.Fatalf("Backoff(%d) = %v, want in [%v, %v)", tc.attempt, got, tc.base, tc.base+200*time.Millisecond)
			}
		}
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{MaxRetries: -3}, WithLogger(logrus.New()))
	assert.Equal(t, DefaultEndpoint, c.endpoint)
	assert.Equal(t, 0, c.maxRetries)
	assert.Equal(t, 12*time.Second, c.http.Timeout)
}

func redirectServer(t *testing.T, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sparql", status)
	})
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Method != http.MethodPost || r.ParseForm() != nil || r.PostForm.Get("query") == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, factsBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRedirect_MethodChangingIsReported(t *testing.T) {
	var hits atomic.Int32
	srv := redirectServer(t, http.StatusMovedPermanently, &hits)
	logger, _ := test.NewNullLogger()
	c := New(Config{Endpoint: srv.URL + "/old", MaxRetries: 2}, WithLogger(logger))
	c.backoff = func(int) time.Duration { return 0 }

	_, err := c.FetchFacts(context.Background(), 16)

	var statusErr *RemoteStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusMovedPermanently, statusErr.StatusCode)
	assert.EqualValues(t, 0, hits.Load(), "the form must not be dropped into a GET")
}

func TestRedirect_PermanentKeepsForm(t *testing.T) {
	var hits atomic.Int32
	srv := redirectServer(t, http.StatusPermanentRedirect, &hits)
	logger, _ := test.NewNullLogger()
	c := New(Config{Endpoint: srv.URL + "/old"}, WithLogger(logger))

	facts, err := c.FetchFacts(context.Background(), 16)
	require.NoError(t, err)
	assert.Len(t, facts, 2)
	assert.EqualValues(t, 1, hits.Load())
}
