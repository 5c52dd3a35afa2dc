package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cooperrunyan/cashflow"
	"github.com/cooperrunyan/cashflow/internal/config"
)

type benchOptions struct {
	users       int
	concurrency int
	ops         int
}

func newBenchCmd(configFile *string) *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure hashing, authorize, and login latency with the configured cost parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.users <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return oops.In("bench").Code("bad_flags").Errorf("users, concurrency, and ops must be > 0")
			}
			settings, err := config.Load(*configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), settings, opts, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.users, "users", 100, "number of accounts to seed")
	fs.IntVar(&opts.concurrency, "concurrency", 16, "number of concurrent workers")
	fs.IntVar(&opts.ops, "ops", 2000, "operations per phase")

	return cmd
}

func runBench(ctx context.Context, settings *config.Settings, opts benchOptions, out io.Writer) error {
	// Missing secrets get throwaway values so the benchmark runs on a bare
	// checkout.
	if settings.JWT.SigningKey == "" {
		settings.JWT.SigningKey = strings.Repeat(uuid.NewString(), 2)
		fmt.Fprintln(out, "using an ephemeral signing key")
	}
	if settings.Password.Salt == "" {
		settings.Password.Salt = uuid.NewString()
	}
	if settings.Password.Key == "" {
		settings.Password.Key = uuid.NewString()
	}
	settings.Security.EnableLoginThrottle = false
	settings.Security.EnableIPThrottle = false

	cfg, err := settings.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := cashflow.New().WithConfig(cfg).Build()
	if err != nil {
		return oops.In("bench").Code("engine_build").Wrap(err)
	}
	defer engine.Close()

	store := newMemStore()
	emails := make([]string, opts.users)
	tokens := make([]string, opts.users)

	fmt.Fprintf(out, "seeding %d accounts...\n", opts.users)
	startSeed := time.Now()
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@bench.local", i)
		res, err := engine.Register(ctx, emails[i], benchPassword(i), store)
		if err != nil {
			return oops.In("bench").Code("seed").Wrap(err)
		}
		tokens[i] = res.Token
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	hashStats := runPhase(opts, func(idx int) error {
		_, err := engine.HashContext(ctx, benchPassword(idx))
		return err
	})
	authorizeStats := runPhase(opts, func(idx int) error {
		_, resp := engine.AuthorizeHeader(ctx, cfg.Session.Scheme+tokens[idx], true)
		if resp != nil {
			return fmt.Errorf("authorize rejected: %s", resp.Outcome())
		}
		return nil
	})
	loginStats := runPhase(opts, func(idx int) error {
		_, err := engine.Login(ctx, emails[idx], benchPassword(idx), store)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "hash", hashStats)
	printStats(out, "authorize", authorizeStats)
	printStats(out, "login", loginStats)
	return nil
}

func benchPassword(i int) string {
	return fmt.Sprintf("bench-password-%d", i)
}

// runPhase runs opts.ops calls of op spread over opts.concurrency workers,
// each call against a random seeded account.
func runPhase(opts benchOptions, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(worker)*7919))
			for {
				if int(cursor.Add(1)) > opts.ops {
					return
				}
				idx := r.IntN(opts.users)
				t0 := time.Now()
				err := op(idx)
				d := time.Since(t0)
				if err != nil {
					failures.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	slices.Sort(samples)
	s := phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
	if total > 0 {
		s.opsPerS = float64(len(samples)) / total.Seconds()
	}
	return s
}

// percentile expects sorted samples.
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
