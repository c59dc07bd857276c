package test

import (
	"context"
	"errors"
	"testing"
	"time"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

func TestModalDismissCancelsChallenge(t *testing.T) {
	modal := threedstest.NewModalRecorder()
	f := newModernFixture(t, modernConfig(t), func(b *goThreeDS.Builder) { b.WithModal(modal) })
	f.transport.OnLookup("ref", threedstest.Response{Body: threedstest.ChallengeLookup("ref", "https://acs.example")})
	f.sdk.OnContinue = func(sdk *threedstest.FakeSDK, _ threedstest.ContinueCall) {
		sdk.Emit(goThreeDS.SDKEventRender, goThreeDS.SDKEvent{})
	}

	done := verifyAsync(f.session, request("ref"))
	select {
	case <-modal.Opened():
	case <-time.After(3 * time.Second):
		t.Fatal("modal not opened")
	}
	if !modal.Dismiss() {
		t.Fatal("no modal to dismiss")
	}

	if r := waitResult(t, done); !errors.Is(r.err, goThreeDS.ErrSDKCanceled) {
		t.Fatalf("expected ErrSDKCanceled, got %v", r.err)
	}
	if opens, closes := modal.Counts(); opens != 1 || closes != 1 {
		t.Fatalf("expected one open and one close, got %d/%d", opens, closes)
	}
	if cfgs := f.sdk.Configs(); len(cfgs) != 1 || cfgs[0].Payment.Framework != "bootstrap3" || !cfgs[0].Payment.DisplayExitButton {
		t.Fatalf("unexpected sdk options: %+v", cfgs)
	}
	triggered := false
	for _, ev := range f.sdk.Triggers() {
		if ev == goThreeDS.SDKEventClose {
			triggered = true
		}
	}
	if !triggered {
		t.Fatal("expected the SDK to be told the modal closed")
	}
}

func TestInlineMountsSurfaceAndUnmountsOnOutcome(t *testing.T) {
	inline := &threedstest.InlineRecorder{}
	f := newModernFixture(t, modernConfig(t), func(b *goThreeDS.Builder) { b.WithInline(inline) })
	f.transport.
		OnLookup("ref", threedstest.Response{Body: threedstest.ChallengeLookup("ref", "https://acs.example")}).
		OnAuthenticate("ref", threedstest.Response{Body: threedstest.AuthenticatedBody("upgraded")})
	f.sdk.OnContinue = func(sdk *threedstest.FakeSDK, _ threedstest.ContinueCall) {
		sdk.Emit(goThreeDS.SDKEventInlineSetup, goThreeDS.SDKEvent{Inline: &goThreeDS.InlineSetup{
			Markup:      "<iframe></iframe>",
			Container:   "challenge",
			PaymentType: "CCA",
			Mode:        goThreeDS.InlineModeStatic,
		}})
		sdk.Validated("SUCCESS", "signed")
	}

	r := waitResult(t, verifyAsync(f.session, request("ref")))
	if r.err != nil {
		t.Fatalf("verify: %v", r.err)
	}
	if r.out.ReferenceID != "upgraded" {
		t.Fatalf("unexpected outcome: %+v", r.out)
	}
	if len(inline.Mounted()) != 1 || inline.Unmounts() != 1 {
		t.Fatalf("expected one mount and one unmount, got %d/%d", len(inline.Mounted()), inline.Unmounts())
	}
}

func TestInlineRejectsIncompleteSurface(t *testing.T) {
	inline := &threedstest.InlineRecorder{}
	f := newModernFixture(t, modernConfig(t), func(b *goThreeDS.Builder) { b.WithInline(inline) })
	f.transport.OnLookup("ref", threedstest.Response{Body: threedstest.ChallengeLookup("ref", "https://acs.example")})
	f.sdk.OnContinue = func(sdk *threedstest.FakeSDK, _ threedstest.ContinueCall) {
		sdk.Emit(goThreeDS.SDKEventInlineSetup, goThreeDS.SDKEvent{Inline: &goThreeDS.InlineSetup{
			Markup:      "<iframe></iframe>",
			PaymentType: "CCA",
			Mode:        goThreeDS.InlineModeStatic,
		}})
	}

	r := waitResult(t, verifyAsync(f.session, request("ref")))
	if !errors.Is(r.err, goThreeDS.ErrInlineIframeDetailsIncorrect) {
		t.Fatalf("expected ErrInlineIframeDetailsIncorrect, got %v", r.err)
	}
	if len(inline.Mounted()) != 0 {
		t.Fatal("incomplete surface was mounted")
	}
}

func TestModalAndInlineAreExclusive(t *testing.T) {
	_, err := goThreeDS.New().
		WithConfig(modernConfig(t)).
		WithSDK(threedstest.NewFakeSDK("df")).
		WithScriptLoader(threedstest.NewRecordingLoader()).
		WithModal(threedstest.NewModalRecorder()).
		WithInline(&threedstest.InlineRecorder{}).
		Build()
	if !errors.Is(err, goThreeDS.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSurfaceEventsWithoutChallengeAreIgnored(t *testing.T) {
	modal := threedstest.NewModalRecorder()
	f := newModernFixture(t, modernConfig(t), func(b *goThreeDS.Builder) { b.WithModal(modal) })
	f.transport.OnLookup("ref", threedstest.Response{Body: threedstest.FrictionlessLookup("ref", true)})

	out, err := f.session.Verify(context.Background(), request("ref"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if n := f.sdk.Emit(goThreeDS.SDKEventRender, goThreeDS.SDKEvent{}); n == 0 {
		t.Fatal("expected a render handler subscribed")
	}
	if opens, _ := modal.Counts(); opens != 0 {
		t.Fatalf("modal opened without a pending challenge: %d", opens)
	}
	if out.ReferenceID != "ref" || f.session.State() != goThreeDS.StateComplete {
		t.Fatalf("late render changed the outcome: %+v, %s", out, f.session.State())
	}
}
