package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	c := NewCollector("test")

	c.CacheHit()
	c.CacheHit()
	c.CacheMiss()
	c.Ingested(3)
	c.Ingested(0)
	c.ProviderRequest("GetNode", "ok", 10*time.Millisecond)
	c.ProviderRequest("GetNode", "TRANSPORT", time.Millisecond)
	c.EditorSave("title")
	c.HistoryEviction()
	c.HTTPRequest("GET", "/get-node", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.CacheIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderRequests.WithLabelValues("GetNode", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderRequests.WithLabelValues("GetNode", "TRANSPORT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EditorSaves.WithLabelValues("title")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HistoryEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/get-node", "200")))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.CacheHit()
		c.CacheMiss()
		c.Ingested(1)
		c.ProviderRequest("op", "ok", time.Second)
		c.EditorSave("tags")
		c.HistoryEviction()
		c.HTTPRequest("GET", "/", 200, time.Second)
	})
	assert.Nil(t, c.GetRegistry())
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("graph")
	c.CacheHit()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "graph_cache_hits_total 1")
}

func TestCollectors_AreIndependent(t *testing.T) {
	a := NewCollector("ns")
	b := NewCollector("ns")
	a.CacheHit()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits))
}
