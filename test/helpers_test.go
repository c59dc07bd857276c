package test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/bus"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

const testAssetsOrigin = "https://assets.example"

type verifyResult struct {
	out *goThreeDS.VerificationOutcome
	err error
}

// modernFixture is a modern-strategy session with fake collaborators. The
// script URL is unique per test so script loads do not leak across tests.
type modernFixture struct {
	session   *goThreeDS.Session
	transport *threedstest.FakeTransport
	sdk       *threedstest.FakeSDK
	loader    *threedstest.RecordingLoader
	scriptURL string
}

func testScriptURL(t *testing.T) string {
	return "https://sdk.example/" + url.PathEscape(t.Name()) + "/songbird.js"
}

func modernConfig(t *testing.T) goThreeDS.Config {
	cfg := goThreeDS.DefaultConfig()
	cfg.Version = goThreeDS.VersionModern
	cfg.SDK.ScriptURL = testScriptURL(t)
	cfg.SDK.SetupJWT = "setup-jwt"
	cfg.SDK.SetupTimeout = 2 * time.Second
	return cfg
}

func newModernFixture(t *testing.T, cfg goThreeDS.Config, configure func(*goThreeDS.Builder)) *modernFixture {
	t.Helper()

	f := &modernFixture{
		transport: threedstest.NewFakeTransport(),
		sdk:       threedstest.NewFakeSDK("df-reference"),
		loader:    threedstest.NewRecordingLoader(),
		scriptURL: cfg.SDK.ScriptURL,
	}
	b := goThreeDS.New().
		WithConfig(cfg).
		WithTransport(f.transport).
		WithSDK(f.sdk).
		WithScriptLoader(f.loader)
	if configure != nil {
		configure(b)
	}

	s, err := b.Build()
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	t.Cleanup(func() { _ = s.Teardown(context.Background()) })
	f.session = s
	return f
}

type legacyFixture struct {
	session   *goThreeDS.Session
	transport *threedstest.FakeTransport
	bus       *bus.Memory
	frames    *threedstest.FrameRecorder
}

func legacyConfig() goThreeDS.Config {
	cfg := goThreeDS.DefaultConfig()
	cfg.Version = goThreeDS.VersionLegacy
	cfg.Legacy.AssetsURL = testAssetsOrigin
	return cfg
}

func newLegacyFixture(t *testing.T, cfg goThreeDS.Config) *legacyFixture {
	t.Helper()

	f := &legacyFixture{
		transport: threedstest.NewFakeTransport(),
		bus:       bus.NewMemory(),
		frames:    threedstest.NewFrameRecorder(4),
	}
	s, err := goThreeDS.New().
		WithConfig(cfg).
		WithTransport(f.transport).
		WithBus(f.bus).
		Build()
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	t.Cleanup(func() { _ = s.Teardown(context.Background()) })
	f.session = s
	return f
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// startNow is an OnLookupComplete hook that lets the challenge start at once.
func startNow(_ *goThreeDS.LookupResult, start func()) { start() }

func request(ref string) goThreeDS.VerificationRequest {
	return goThreeDS.VerificationRequest{
		ReferenceID:      ref,
		Amount:           "10.00",
		BIN:              "411111",
		OnLookupComplete: startNow,
	}
}

func verifyAsync(s *goThreeDS.Session, req goThreeDS.VerificationRequest) <-chan verifyResult {
	done := make(chan verifyResult, 1)
	go func() {
		out, err := s.Verify(context.Background(), req)
		done <- verifyResult{out: out, err: err}
	}()
	return done
}

func waitResult(t *testing.T, done <-chan verifyResult) verifyResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("verification did not settle")
		return verifyResult{}
	}
}

func waitFrame(t *testing.T, frames *threedstest.FrameRecorder) *goThreeDS.ChallengeFrame {
	t.Helper()
	select {
	case f := <-frames.Frames:
		return f
	case <-time.After(3 * time.Second):
		t.Fatal("bank frame was not mounted")
		return nil
	}
}
