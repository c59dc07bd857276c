package test

import (
	"context"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	goThreeDS "github.com/MrEthical07/goThreeDS"
	"github.com/MrEthical07/goThreeDS/threedstest"
)

const testAPIKey = "integration-api-key"

func jwtConfig(t *testing.T) goThreeDS.Config {
	cfg := modernConfig(t)
	cfg.SDK.SetupJWT = ""
	cfg.JWT.Key = testAPIKey
	cfg.JWT.Issuer = "api-identifier"
	cfg.JWT.OrgUnitID = "org-unit"
	cfg.JWT.VerifyResponses = true
	return cfg
}

func signValidation(t *testing.T, key, actionCode string) string {
	t.Helper()
	now := time.Now()
	token := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"iss": "network",
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
		"Payload": map[string]any{
			"ActionCode": actionCode,
			"Validated":  true,
		},
	})
	signed, err := token.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign validation token: %v", err)
	}
	return signed
}

func TestJWTSetupTokenIsMinted(t *testing.T) {
	f := newModernFixture(t, jwtConfig(t), nil)
	f.transport.OnLookup("ref", threedstest.Response{Body: threedstest.FrictionlessLookup("ref", true)})

	if _, err := f.session.Verify(context.Background(), request("ref")); err != nil {
		t.Fatalf("verify: %v", err)
	}

	setups := f.sdk.Setups()
	if len(setups) != 1 {
		t.Fatalf("expected one setup, got %d", len(setups))
	}
	claims := gjwt.MapClaims{}
	_, err := gjwt.ParseWithClaims(setups[0].JWT, claims, func(*gjwt.Token) (any, error) {
		return []byte(testAPIKey), nil
	}, gjwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("parse setup token: %v", err)
	}
	if claims["iss"] != "api-identifier" || claims["OrgUnitId"] != "org-unit" {
		t.Fatalf("unexpected setup claims: %v", claims)
	}
	if claims["ReferenceId"] != f.session.ID() {
		t.Fatalf("expected session id as reference, got %v", claims["ReferenceId"])
	}
	if _, ok := claims["jti"]; !ok {
		t.Fatal("expected jti on setup token")
	}
}

func TestJWTValidationTokenIsVerified(t *testing.T) {
	f := newModernFixture(t, jwtConfig(t), nil)
	signed := signValidation(t, testAPIKey, "SUCCESS")
	f.transport.
		OnLookup("ref", threedstest.Response{Body: threedstest.ChallengeLookup("ref", "https://acs.example")}).
		OnAuthenticate("ref", threedstest.Response{Body: threedstest.AuthenticatedBody("upgraded")})
	f.sdk.OnContinue = func(sdk *threedstest.FakeSDK, _ threedstest.ContinueCall) {
		// The event's own payload disagrees; the signed token wins.
		sdk.Emit(goThreeDS.SDKEventValidated, goThreeDS.SDKEvent{
			Validation: &goThreeDS.ValidationData{ActionCode: "ERROR", ErrorNumber: 10011},
			JWT:        signed,
		})
	}

	out, err := f.session.Verify(context.Background(), request("ref"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.ReferenceID != "upgraded" || out.RawVerificationData.ActionCode != "SUCCESS" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if got := f.transport.Calls()[1].Data["jwt"]; got != signed {
		t.Fatalf("expected the signed token to be exchanged, got %v", got)
	}
}

func TestJWTForgedValidationTokenFails(t *testing.T) {
	f := newModernFixture(t, jwtConfig(t), nil)
	forged := signValidation(t, "other-key", "SUCCESS")
	f.transport.OnLookup("ref", threedstest.Response{Body: threedstest.ChallengeLookup("ref", "https://acs.example")})
	f.sdk.OnContinue = func(sdk *threedstest.FakeSDK, _ threedstest.ContinueCall) {
		sdk.Validated("SUCCESS", forged)
	}

	_, err := f.session.Verify(context.Background(), request("ref"))
	if !errors.Is(err, goThreeDS.ErrJWTAuthenticationFailed) {
		t.Fatalf("expected ErrJWTAuthenticationFailed, got %v", err)
	}
	if n := f.transport.CallCount(threedstest.AuthenticateEndpoint("ref")); n != 0 {
		t.Fatalf("expected no authenticate exchange, got %d", n)
	}
}
