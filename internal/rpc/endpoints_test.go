package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	latency time.Duration
	block   uint64
	err     error
}

func (f fakePinger) Ping(context.Context) (time.Duration, uint64, error) {
	return f.latency, f.block, f.err
}

func withFakes(t *testing.T, fakes map[string]fakePinger) *[]string {
	t.Helper()
	var dialed []string
	prev := Dial
	Dial = func(url string) Pinger {
		dialed = append(dialed, url)
		return fakes[url]
	}
	t.Cleanup(func() { Dial = prev })
	return &dialed
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFailover, a)

	a, err = ParseAlgorithm("fastest")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFastest, a)

	_, err = ParseAlgorithm("round-robin")
	assert.Error(t, err)
}

func TestFastestSkipsUnhealthyAndStale(t *testing.T) {
	eps := []Endpoint{
		{URL: "a", Latency: 10 * time.Millisecond, Block: 90},
		{URL: "b", Latency: 40 * time.Millisecond, Block: 100},
		{URL: "c", Latency: 5 * time.Millisecond, Err: errors.New("refused")},
		{URL: "d", Latency: 30 * time.Millisecond, Block: 98},
	}
	e, err := Fastest(eps)
	require.NoError(t, err)
	assert.Equal(t, "d", e.URL)
}

func TestFastestNoneHealthy(t *testing.T) {
	_, err := Fastest([]Endpoint{{URL: "a", Err: errors.New("down")}})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)

	_, err = Fastest(nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestSelectSingleURLSkipsPing(t *testing.T) {
	dialed := withFakes(t, nil)
	u, err := Select(context.Background(), []string{"only"}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, "only", u)
	assert.Empty(t, *dialed)

	_, err = Select(context.Background(), nil, AlgorithmFailover)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestSelectFailoverKeepsOrder(t *testing.T) {
	dialed := withFakes(t, map[string]fakePinger{
		"first":  {err: errors.New("timeout")},
		"second": {latency: 90 * time.Millisecond, block: 10},
		"third":  {latency: 1 * time.Millisecond, block: 10},
	})
	u, err := Select(context.Background(), []string{"first", "second", "third"}, AlgorithmFailover)
	require.NoError(t, err)
	assert.Equal(t, "second", u)
	assert.Equal(t, []string{"first", "second"}, *dialed)
}

func TestSelectFailoverAllDown(t *testing.T) {
	withFakes(t, map[string]fakePinger{
		"a": {err: errors.New("timeout")},
		"b": {err: errors.New("refused")},
	})
	_, err := Select(context.Background(), []string{"a", "b"}, AlgorithmFailover)
	require.ErrorIs(t, err, ErrNoHealthyRPC)
	assert.Contains(t, err.Error(), "refused")
}

func TestBenchmarkAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x2a"})
	}))
	defer srv.Close()

	eps := Benchmark(context.Background(), []string{srv.URL, "http://127.0.0.1:1"})
	require.Len(t, eps, 2)
	assert.True(t, eps[0].Healthy())
	assert.Equal(t, uint64(42), eps[0].Block)
	assert.False(t, eps[1].Healthy())

	u, err := Select(context.Background(), []string{"http://127.0.0.1:1", srv.URL}, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, u)
}
