package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/protocol"
)

func TestSequentialKeys(t *testing.T) {
	var g SequentialKeys
	assert.Equal(t, "n1", g.Generate())
	assert.Equal(t, "n2", g.Generate())

	g.Reset()
	assert.Equal(t, "n1", g.Generate())
}

func TestSequentialKeys_Concurrent(t *testing.T) {
	var g SequentialKeys
	var wg sync.WaitGroup
	seen := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- g.Generate()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for k := range seen {
		unique[k] = true
	}
	assert.Len(t, unique, 100)
}

func TestStubTransport(t *testing.T) {
	s := NewStubTransport(`{"head":{},"boolean":true}`).Respond("SELECT * WHERE {}", "canned")

	resp, err := s.Get(context.Background(), "http://a", "SELECT * WHERE {}", protocol.Options{Accept: protocol.AcceptResults})
	require.NoError(t, err)
	assert.Equal(t, "canned", resp.Text())
	assert.Equal(t, protocol.AcceptResults, resp.ContentType)

	resp, err = s.Get(context.Background(), "http://b", "ASK {}", protocol.Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"head":{},"boolean":true}`, resp.Text())

	assert.Equal(t, 2, s.Calls())
	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "http://b", reqs[1].Location)
}

func TestStubTransport_NoDefault(t *testing.T) {
	s := NewStubTransport("")
	_, err := s.Get(context.Background(), "http://a", "ASK {}", protocol.Options{})
	assert.True(t, protocol.IsTransportError(err))
}

func TestStubTransport_GateCancelled(t *testing.T) {
	s := NewStubTransport("x")
	s.Gate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "http://a", "ASK {}", protocol.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecordingView(t *testing.T) {
	var v RecordingView
	n := &algebra.Node{Key: "k"}
	v.Present(n, algebra.ReasonQuery)
	v.Present(n, algebra.ReasonResults)

	assert.Equal(t, []string{algebra.ReasonQuery, algebra.ReasonResults}, v.Reasons())
	assert.Equal(t, Presentation{Key: "k", Reason: algebra.ReasonQuery}, v.Calls()[0])
}
