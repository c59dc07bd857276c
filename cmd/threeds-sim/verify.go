package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/metrics/export/prometheus"
)

type verifyFlags struct {
	scenario string
	ref      string
	amount   string
	bin      string
	handoff  bool
	events   bool
	metrics  bool
	otel     bool
}

func verifyCmd(global *globalFlags) *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run one verification and print its outcome as JSON",
		Long: `Run one verification against the scripted doubles.

Scenarios:
  frictionless  lookup shifts liability without a challenge
  challenge     lookup requires a challenge that the SDK validates
  cancel        the cardholder cancels the challenge
  not-found     the gateway does not know the reference`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.scenario, "scenario", "s", string(scenarioChallenge), "gateway and SDK scenario")
	cmd.Flags().StringVar(&flags.ref, "ref", "sim-reference", "payment method reference")
	cmd.Flags().StringVar(&flags.amount, "amount", "10.00", "transaction amount")
	cmd.Flags().StringVar(&flags.bin, "bin", "411111", "card BIN")
	cmd.Flags().BoolVar(&flags.handoff, "handoff", false, "look up server-side and resume from the Redis handoff")
	cmd.Flags().BoolVar(&flags.events, "events", false, "write verification events to stderr as JSON lines")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "print metrics in Prometheus format after the run")
	cmd.Flags().BoolVar(&flags.otel, "otel", false, "print metrics as collected by an OpenTelemetry reader after the run")

	return cmd
}

func runVerify(ctx context.Context, stdout, stderr io.Writer, global *globalFlags, flags *verifyFlags) error {
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
	cfg.Metrics.Enabled = cfg.Metrics.Enabled || flags.metrics || flags.otel
	cfg.Metrics.EnableLatencyHistograms = cfg.Metrics.EnableLatencyHistograms || flags.metrics || flags.otel
	cfg.Events.Enabled = cfg.Events.Enabled || flags.events
	cfg.Events.DropIfFull = false

	logger, err := newLogger(stderr, global.logLevel)
	if err != nil {
		return err
	}

	opts := simOptions{cfg: cfg, logger: logger}
	if flags.events {
		opts.sink = goThreeDS.NewJSONWriterSink(stderr)
	}
	if flags.handoff || cfg.RateLimit.Enabled {
		client, closeRedis, err := openRedis(global.redisAddr)
		if err != nil {
			return err
		}
		defer closeRedis()
		opts.redis = client
	}

	sim, err := newSimSession(opts)
	if err != nil {
		return err
	}
	script(sc, flags.ref, sim.transport, sim.sdk)

	req := goThreeDS.VerificationRequest{
		ReferenceID:      flags.ref,
		Amount:           goThreeDS.Amount(flags.amount),
		BIN:              flags.bin,
		OnLookupComplete: func(_ *goThreeDS.LookupResult, start func()) { start() },
	}

	var out *goThreeDS.VerificationOutcome
	if flags.handoff {
		var handoff *goThreeDS.Handoff
		handoff, err = sim.session.ServerLookup(ctx, req)
		if err == nil {
			logger.Info("lookup handed off", "handoff_id", handoff.ID, "expires_at", handoff.ExpiresAt)
			out, err = sim.session.ResumeFromHandoff(ctx, handoff.ID, req)
		}
	} else {
		out, err = sim.session.Verify(ctx, req)
	}

	_ = sim.session.Teardown(ctx)

	if err == nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	} else {
		err = describeError(err)
	}
	if flags.metrics {
		fmt.Fprint(stdout, prometheus.NewPrometheusExporter(sim.session).Render())
	}
	if flags.otel {
		values, otelErr := collectOTel(ctx, sim.session)
		if otelErr != nil {
			return errors.Join(err, otelErr)
		}
		printOTel(stdout, values)
	}
	return err
}

func describeError(err error) error {
	var e *goThreeDS.Error
	if errors.As(err, &e) {
		if len(e.Details) > 0 {
			return fmt.Errorf("%s %s: %s %v", e.Type, e.Code, e.Message, e.Details)
		}
		return fmt.Errorf("%s %s: %s", e.Type, e.Code, e.Message)
	}
	return err
}

