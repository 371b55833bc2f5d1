package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	yggAuth "github.com/nsiso/yggAuth"
	promexport "github.com/nsiso/yggAuth/metrics/export/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type probeOptions struct {
	count       int
	concurrency int
	rate        float64
	burst       int
	metricsAddr string
}

func runProbe(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	commonFlags(fs)
	username := fs.StringP("username", "u", "", "account username or email")
	password := fs.StringP("password", "p", "", "account password (or YGGAUTH_PASSWORD)")
	var opts probeOptions
	fs.IntVar(&opts.count, "count", 20, "number of logins to attempt")
	fs.IntVar(&opts.concurrency, "concurrency", 4, "number of concurrent workers")
	fs.Float64Var(&opts.rate, "rate", 2, "logins per second across all workers")
	fs.IntVar(&opts.burst, "burst", 1, "rate limiter burst")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while probing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.count <= 0 || opts.concurrency <= 0 || opts.rate <= 0 || opts.burst <= 0 {
		return errors.New("count, concurrency, rate and burst must be > 0")
	}

	creds, err := credentials(*username, *password)
	if err != nil {
		return err
	}

	rt, err := newApp(fs)
	if err != nil {
		return err
	}
	defer rt.Close()

	exporter, err := promexport.NewExporter(rt.engine)
	if err != nil {
		return errors.Wrap(err, "register metrics")
	}
	if opts.metricsAddr != "" {
		stopServer, err := serveMetrics(opts.metricsAddr, exporter.Handler(), rt.logger)
		if err != nil {
			return err
		}
		defer stopServer()
	}

	auth := rt.engine.NewCredentialAuthenticator(creds)
	stats := probe(ctx, auth, opts)

	printProbeStats(out, stats)
	return writeMetrics(out, exporter)
}

type probeStats struct {
	total     time.Duration
	states    map[yggAuth.AuthState]int
	latencies []time.Duration
	skipped   int64
}

// probe runs opts.count authentications through a shared limiter. Attempts
// not started before ctx ends are counted as skipped.
func probe(ctx context.Context, auth yggAuth.Authenticator, opts probeOptions) probeStats {
	limiter := rate.NewLimiter(rate.Limit(opts.rate), opts.burst)

	var (
		wg      sync.WaitGroup
		cursor  int64
		skipped int64
		mu      sync.Mutex
		stats   = probeStats{
			states:    make(map[yggAuth.AuthState]int),
			latencies: make([]time.Duration, 0, opts.count),
		}
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.count {
					return
				}
				if err := limiter.Wait(ctx); err != nil {
					atomic.AddInt64(&skipped, 1)
					continue
				}

				t0 := time.Now()
				res := auth.Authenticate(ctx)
				d := time.Since(t0)

				mu.Lock()
				stats.states[res.State]++
				stats.latencies = append(stats.latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stats.total = time.Since(start)
	stats.skipped = atomic.LoadInt64(&skipped)
	sort.Slice(stats.latencies, func(i, j int) bool { return stats.latencies[i] < stats.latencies[j] })
	return stats
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printProbeStats(out io.Writer, s probeStats) {
	fmt.Fprintf(out, "attempts=%d skipped=%d total=%s p50=%s p95=%s p99=%s\n",
		len(s.latencies),
		s.skipped,
		s.total.Round(time.Millisecond),
		percentile(s.latencies, 50).Round(time.Millisecond),
		percentile(s.latencies, 95).Round(time.Millisecond),
		percentile(s.latencies, 99).Round(time.Millisecond),
	)

	states := make([]yggAuth.AuthState, 0, len(s.states))
	for state := range s.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	for _, state := range states {
		fmt.Fprintf(out, "  %-22s %d\n", state, s.states[state])
	}
}

func writeMetrics(out io.Writer, exporter *promexport.Exporter) error {
	families, err := exporter.Registry().Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}

func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
