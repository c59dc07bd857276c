package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/metrics/export/internaldefs"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

type loadtestFlags struct {
	scenario    string
	concurrency int
	ops         int
	handoff     bool
}

func loadtestCmd(global *globalFlags) *cobra.Command {
	flags := &loadtestFlags{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run verifications concurrently and report latency percentiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.concurrency <= 0 || flags.ops <= 0 {
				return errors.New("concurrency and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.scenario, "scenario", "s", string(scenarioChallenge), "gateway and SDK scenario")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 64, "number of concurrent sessions")
	cmd.Flags().IntVar(&flags.ops, "ops", 20000, "total verifications")
	cmd.Flags().BoolVar(&flags.handoff, "handoff", false, "split each verification into ServerLookup and ResumeFromHandoff")

	return cmd
}

func runLoadtest(ctx context.Context, stdout, stderr io.Writer, global *globalFlags, flags *loadtestFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := parseScenario(flags.scenario)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	logger, err := newLogger(stderr, global.logLevel)
	if err != nil {
		return err
	}

	opts := simOptions{
		cfg:    cfg,
		logger: logger,
		loader: threedstest.NewRecordingLoader(),
	}
	if flags.handoff || cfg.RateLimit.Enabled {
		client, closeRedis, err := openRedis(global.redisAddr)
		if err != nil {
			return err
		}
		defer closeRedis()
		opts.redis = client
	}

	// A session runs one verification at a time, so each worker owns one.
	sims := make([]*simSession, flags.concurrency)
	for w := range sims {
		sim, err := newSimSession(opts)
		if err != nil {
			return err
		}
		script(sc, fmt.Sprintf("sim-ref-%d", w), sim.transport, sim.sdk)
		sims[w] = sim
	}
	defer func() {
		for _, sim := range sims {
			_ = sim.session.Teardown(context.Background())
		}
	}()

	fmt.Fprintf(stdout, "running %d %s verifications on %d sessions...\n", flags.ops, sc, flags.concurrency)
	stats := runPhase(ctx, sims, flags.ops, flags.handoff)

	fmt.Fprintln(stdout, "---- results ----")
	printStats(stdout, "verify", stats)
	printCounters(stdout, sims)
	return nil
}

func runPhase(ctx context.Context, sims []*simSession, ops int, handoff bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := range sims {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			sim := sims[worker]
			req := goThreeDS.VerificationRequest{
				ReferenceID:      fmt.Sprintf("sim-ref-%d", worker),
				Amount:           "10.00",
				BIN:              "411111",
				OnLookupComplete: func(_ *goThreeDS.LookupResult, start func()) { start() },
			}
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := verifyOnce(ctx, sim.session, req, handoff)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func verifyOnce(ctx context.Context, s *goThreeDS.Session, req goThreeDS.VerificationRequest, handoff bool) error {
	if !handoff {
		_, err := s.Verify(ctx, req)
		return err
	}
	h, err := s.ServerLookup(ctx, req)
	if err != nil {
		return err
	}
	_, err = s.ResumeFromHandoff(ctx, h.ID, req)
	return err
}

func printCounters(w io.Writer, sims []*simSession) {
	totals := make(map[goThreeDS.MetricID]uint64)
	for _, sim := range sims {
		for id, v := range sim.session.MetricsSnapshot().Counters {
			totals[id] += v
		}
	}
	for _, def := range internaldefs.CounterDefs {
		if v := totals[def.ID]; v > 0 {
			fmt.Fprintf(w, "%s %d\n", def.Name, v)
		}
	}
}
