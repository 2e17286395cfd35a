package pool

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPoolReusesClients(t *testing.T) {
	p := NewClientPool(Config{}, nil)

	google := p.Client("google")
	assert.Same(t, google, p.Client("google"))
	assert.NotSame(t, google, p.Client("other"))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, DefaultConfig().RequestTimeout, google.Timeout)

	p.Close()
	assert.Zero(t, p.Len())
}

func TestClientPoolRequestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	p := NewClientPool(Config{RequestTimeout: 50 * time.Millisecond}, nil)
	defer p.Close()

	resp, err := p.Client("slow").Get(slow.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout")
}
