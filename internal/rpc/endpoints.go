// Package rpc chooses between the RPC endpoints configured for a network.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Mohsinsiddi/sav3/internal/chain"
)

// ErrNoHealthyRPC is returned when no endpoint answered.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm decides how an endpoint is chosen.
type Algorithm string

const (
	// AlgorithmFailover uses the first endpoint that answers, in config order.
	AlgorithmFailover Algorithm = "failover"
	// AlgorithmFastest pings every endpoint and keeps the quickest fresh one.
	AlgorithmFastest Algorithm = "fastest"

	// Endpoints further than this behind the best block are skipped.
	staleBlockThreshold = 3
	checkTimeout        = 5 * time.Second
)

// ParseAlgorithm accepts "failover", "fastest" or "" (failover).
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmFailover:
		return AlgorithmFailover, nil
	case AlgorithmFastest:
		return AlgorithmFastest, nil
	}
	return "", fmt.Errorf("unknown rpc algorithm %q (want failover or fastest)", s)
}

// Endpoint is one measured RPC URL.
type Endpoint struct {
	URL     string
	Latency time.Duration
	Block   uint64
	Err     error
}

// Healthy reports whether the endpoint answered.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Pinger measures one endpoint. *chain.EVMClient implements it.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, uint64, error)
}

// Dial turns a URL into a Pinger. Tests replace it.
var Dial = func(url string) Pinger { return chain.NewEVMClient(url) }

// Check pings url once.
func Check(ctx context.Context, url string) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	latency, block, err := Dial(url).Ping(ctx)
	return Endpoint{URL: url, Latency: latency, Block: block, Err: err}
}

// Benchmark pings every URL in parallel. Results keep the order of urls.
func Benchmark(ctx context.Context, urls []string) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = Check(ctx, u)
		}()
	}
	wg.Wait()
	return out
}

// Fastest returns the quickest healthy endpoint that is not stale.
func Fastest(endpoints []Endpoint) (Endpoint, error) {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.Block > best {
			best = e.Block
		}
	}
	var fresh []Endpoint
	for _, e := range endpoints {
		if e.Healthy() && best-e.Block <= staleBlockThreshold {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Latency < fresh[j].Latency })
	return fresh[0], nil
}

// Select picks one of urls. A single URL is returned without a round trip.
func Select(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	if algo == AlgorithmFastest {
		e, err := Fastest(Benchmark(ctx, urls))
		if err != nil {
			return "", err
		}
		return e.URL, nil
	}

	var errs []error
	for _, u := range urls {
		e := Check(ctx, u)
		if e.Healthy() {
			return u, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", u, e.Err))
	}
	return "", fmt.Errorf("%w: %w", ErrNoHealthyRPC, errors.Join(errs...))
}
