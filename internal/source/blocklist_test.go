package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/sentry/internal/model"
)

func TestDottedQuad(t *testing.T) {
	valid := []string{"0.0.0.0", "192.168.1.1", "255.255.255.255", "10.0.0.50", "89.248.165.2"}
	for _, ip := range valid {
		assert.True(t, dottedQuad.MatchString(ip), "expected %q to validate", ip)
	}

	invalid := []string{"256.1.1.1", "1.2.3", "1.2.3.4.5", "01.2.3.4", "a.b.c.d", "1.2.3.4 # comment", "", "999.999.999.999"}
	for _, ip := range invalid {
		assert.False(t, dottedQuad.MatchString(ip), "expected %q to be rejected", ip)
	}
}

func TestBlocklist_NextBatch(t *testing.T) {
	body := "# blocklist export\n89.248.165.2\nnot-an-ip\n185.220.101.7\n300.1.1.1\n45.155.205.233\n103.41.124.15\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	src := NewBlocklist(srv.URL, 3, time.Minute, discardLogger())
	events, err := src.NextBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3, "takes first K valid addresses only")

	assert.Equal(t, "89.248.165.2", events[0].SourceIP)
	assert.Equal(t, "185.220.101.7", events[1].SourceIP)
	assert.Equal(t, "45.155.205.233", events[2].SourceIP)

	for _, ev := range events {
		assert.Equal(t, "INTRUSION_ATTEMPT", ev.Type)
		assert.Equal(t, model.SeverityCritical, ev.Severity)
		assert.Equal(t, model.StatusBlocked, ev.Status)
		assert.True(t, ev.Automated)
		assert.Equal(t, FeedNameBlocklist, ev.Metadata[model.MetaFeed])
		assert.Equal(t, ev.SourceIP, ev.Metadata[model.MetaIndicator])
		assert.NotEmpty(t, ev.Metadata[model.MetaAttempts])
	}
}

func TestBlocklist_NextBatch_AllGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>\nnothing\nhere\n</html>\n"))
	}))
	defer srv.Close()

	src := NewBlocklist(srv.URL, 10, time.Minute, discardLogger())
	events, err := src.NextBatch(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestBlocklist_NextBatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewBlocklist(srv.URL, 10, time.Minute, discardLogger())
	_, err := src.NextBatch(context.Background())
	assert.Error(t, err)
}
