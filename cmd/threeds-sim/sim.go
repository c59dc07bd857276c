package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

// scenario selects how the scripted gateway and SDK answer.
type scenario string

const (
	scenarioFrictionless scenario = "frictionless"
	scenarioChallenge    scenario = "challenge"
	scenarioCancel       scenario = "cancel"
	scenarioNotFound     scenario = "not-found"
)

func parseScenario(s string) (scenario, error) {
	switch sc := scenario(strings.ToLower(s)); sc {
	case scenarioFrictionless, scenarioChallenge, scenarioCancel, scenarioNotFound:
		return sc, nil
	default:
		return "", fmt.Errorf("unknown scenario %q (frictionless, challenge, cancel, not-found)", s)
	}
}

const simACSURL = "https://acs.sim.example/challenge"

// script programs transport and sdk so that a verification of ref follows sc.
func script(sc scenario, ref string, transport *threedstest.FakeTransport, sdk *threedstest.FakeSDK) {
	switch sc {
	case scenarioFrictionless:
		transport.OnLookup(ref, threedstest.Response{Body: threedstest.FrictionlessLookup(ref, true)})
	case scenarioChallenge:
		transport.
			OnLookup(ref, threedstest.Response{Body: threedstest.ChallengeLookup(ref, simACSURL)}).
			OnAuthenticate(ref, threedstest.Response{Body: threedstest.AuthenticatedBody(ref + "-authenticated")})
		sdk.OnContinue = func(s *threedstest.FakeSDK, _ threedstest.ContinueCall) {
			s.Validated("SUCCESS", "sim-signed-response")
		}
	case scenarioCancel:
		transport.OnLookup(ref, threedstest.Response{Body: threedstest.ChallengeLookup(ref, simACSURL)})
		sdk.OnContinue = func(s *threedstest.FakeSDK, _ threedstest.ContinueCall) {
			s.Fail(10011, "Canceled by user")
		}
	case scenarioNotFound:
		transport.OnLookup(ref, threedstest.Response{
			Status: 404,
			Body:   map[string]any{"error": map[string]any{"message": "payment method not found"}},
		})
	}
}

// readConfig reads the configuration from the YAML file when one is given,
// otherwise from the environment.
func readConfig(flags *globalFlags) (goThreeDS.Config, error) {
	switch {
	case flags.configPath != "":
		return goThreeDS.LoadConfigFile(flags.configPath)
	case flags.dotEnv:
		return goThreeDS.LoadConfigFromDotEnv()
	default:
		return goThreeDS.LoadConfigFromEnv()
	}
}

// loadConfig is readConfig forced onto the modern strategy the doubles serve.
func loadConfig(flags *globalFlags) (goThreeDS.Config, error) {
	cfg, err := readConfig(flags)
	if err != nil {
		return goThreeDS.Config{}, err
	}
	cfg.Version = goThreeDS.VersionModern
	if cfg.SDK.SetupJWT == "" && cfg.JWT.Key == "" {
		cfg.SDK.SetupJWT = "sim-setup-jwt"
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// openRedis connects to addr, REDIS_ADDR, or a fresh miniredis.
func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

type simSession struct {
	session   *goThreeDS.Session
	transport *threedstest.FakeTransport
	sdk       *threedstest.FakeSDK
}

type simOptions struct {
	cfg    goThreeDS.Config
	logger *slog.Logger
	redis  redis.UniversalClient
	sink   goThreeDS.EventSink
	loader goThreeDS.ScriptLoader
}

func newSimSession(opts simOptions) (*simSession, error) {
	sim := &simSession{
		transport: threedstest.NewFakeTransport(),
		sdk:       threedstest.NewFakeSDK("sim-df-reference"),
	}
	loader := opts.loader
	if loader == nil {
		loader = threedstest.NewRecordingLoader()
	}

	b := goThreeDS.New().
		WithConfig(opts.cfg).
		WithTransport(sim.transport).
		WithSDK(sim.sdk).
		WithScriptLoader(loader).
		WithLogger(opts.logger)
	if opts.redis != nil {
		b.WithRedis(opts.redis)
	}
	if opts.sink != nil {
		b.WithEventSink(opts.sink)
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	sim.session = s
	return sim, nil
}
