package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectResults = `{
  "head": {"vars": ["s", "label"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "http://example.org/a"},
     "label": {"type": "literal", "value": "A", "xml:lang": "en"}},
    {"s": {"type": "bnode", "value": "b0"}}
  ]}
}`

func TestHTTPTransport_Get(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", AcceptResults)
		_, _ = w.Write([]byte(selectResults))
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	resp, err := tr.Get(context.Background(), srv.URL+"/sparql?default-graph-uri=urn:g", "SELECT * WHERE { ?s ?p ?o }", Options{
		Authentication: "Basic dXNlcjpwYXNz",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, AcceptResults, resp.ContentType)
	assert.Equal(t, selectResults, resp.Text())

	require.NotNil(t, got)
	assert.Equal(t, "/sparql", got.URL.Path)
	assert.Equal(t, "SELECT * WHERE { ?s ?p ?o }", got.URL.Query().Get("query"))
	assert.Equal(t, "urn:g", got.URL.Query().Get("default-graph-uri"))
	assert.Equal(t, AcceptResults, got.Header.Get("Accept"))
	assert.Equal(t, "Basic dXNlcjpwYXNz", got.Header.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))

	var decoded map[string]any
	require.NoError(t, resp.JSON(&decoded))
	assert.Contains(t, decoded, "head")
}

func TestHTTPTransport_AcceptOverride(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<http://a> <http://b> <http://c> .\n"))
	}))
	defer srv.Close()

	_, err := NewHTTPTransport().Get(context.Background(), srv.URL, "CONSTRUCT WHERE { ?s ?p ?o }", Options{Accept: AcceptNTriples})
	require.NoError(t, err)
	assert.Equal(t, AcceptNTriples, accept)
}

func TestHTTPTransport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Parse error: line 1", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTPTransport().Get(context.Background(), srv.URL, "SELECT", Options{})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.Status)
	assert.Contains(t, te.Message, "Parse error: line 1")
	assert.Equal(t, srv.URL, te.Location)
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	location := srv.URL
	srv.Close()

	_, err := NewHTTPTransport().Get(context.Background(), location, "ASK {}", Options{})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.Status)
	assert.NotNil(t, te.Unwrap())
}

func TestHTTPTransport_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPTransport().Get(ctx, srv.URL, "ASK {}", Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachingTransport(t *testing.T) {
	var calls atomic.Int32
	next := TransportFunc(func(ctx context.Context, location, query string, opts Options) (*Response, error) {
		calls.Add(1)
		if query == "fail" {
			return nil, &TransportError{Location: location, Status: 500, Message: "boom"}
		}
		return &Response{Status: 200, Body: []byte(query)}, nil
	})
	c := NewCachingTransport(next, 0, 0)
	ctx := context.Background()

	first, err := c.Get(ctx, "http://e", "q1", Options{})
	require.NoError(t, err)
	second, err := c.Get(ctx, "http://e", "q1", Options{})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Get(ctx, "http://e", "q1", Options{Accept: AcceptNTriples})
	require.NoError(t, err)
	_, err = c.Get(ctx, "http://other", "q1", Options{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "accept and location are part of the key")

	for i := 0; i < 2; i++ {
		_, err = c.Get(ctx, "http://e", "fail", Options{})
		assert.True(t, IsTransportError(err))
	}
	assert.Equal(t, int32(5), calls.Load(), "failures are not cached")
	assert.Equal(t, 3, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCachingTransport_Expires(t *testing.T) {
	var calls atomic.Int32
	next := TransportFunc(func(ctx context.Context, location, query string, opts Options) (*Response, error) {
		calls.Add(1)
		return &Response{Status: 200}, nil
	})
	c := NewCachingTransport(next, 4, 20*time.Millisecond)

	_, _ = c.Get(context.Background(), "http://e", "q", Options{})
	time.Sleep(60 * time.Millisecond)
	_, _ = c.Get(context.Background(), "http://e", "q", Options{})
	assert.Equal(t, int32(2), calls.Load())
}

func TestDecodeResults(t *testing.T) {
	r, err := DecodeResults([]byte(selectResults))
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "label"}, r.Head.Vars)
	require.Len(t, r.Bindings(), 2)
	assert.Equal(t, Binding{Type: BindingLiteral, Value: "A", Lang: "en"}, r.Bindings()[0]["label"])
	assert.Nil(t, r.Boolean)

	ask, err := DecodeResults([]byte(`{"head": {}, "boolean": true}`))
	require.NoError(t, err)
	require.NotNil(t, ask.Boolean)
	assert.True(t, *ask.Boolean)
	assert.Nil(t, ask.Bindings())
}

func TestDecodeResults_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"no payload", `{"head": {"vars": []}}`},
		{"unknown type", `{"head": {"vars": ["x"]}, "results": {"bindings": [{"x": {"type": "quad", "value": "?"}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResults([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
