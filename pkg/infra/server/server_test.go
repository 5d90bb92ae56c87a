package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/sentinel-rag/pkg/options/server/http"
)

type fakeServer struct {
	name     string
	startErr error
	mu       *sync.Mutex
	events   *[]string
}

func (f *fakeServer) Name() string { return f.name }

func (f *fakeServer) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	*f.events = append(*f.events, "start "+f.name)
	return nil
}

func (f *fakeServer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.events = append(*f.events, "stop "+f.name)
	return nil
}

func TestManagerOrder(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a := &fakeServer{name: "a", mu: &mu, events: &events}
	b := &fakeServer{name: "b", mu: &mu, events: &events}

	m := NewManager(time.Second, a)
	m.AddServer(b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var mu sync.Mutex
	var events []string
	a := &fakeServer{name: "a", mu: &mu, events: &events}
	b := &fakeServer{name: "b", mu: &mu, events: &events, startErr: errors.New("port in use")}

	m := NewManager(time.Second, a, b)
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start server b")
	assert.Equal(t, []string{"start a", "stop a"}, events)

	assert.Error(t, m.Start(context.Background()), "second start is rejected")
}

func TestHTTPServerServesAndStops(t *testing.T) {
	opts := options.NewOptions()
	opts.Addr = "127.0.0.1:0"

	s := NewHTTPServer(opts, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	require.NoError(t, s.Start(context.Background()))
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = http.Get("http://" + s.Addr() + "/")
	assert.Error(t, err)
}
