package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/storyforge/internal/config"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	creds, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds.APIKey(config.ProviderOpenAI) != "" || creds.HasGoogleOAuth() {
		t.Errorf("expected empty credentials, got %+v", creds)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	creds := &Credentials{}
	creds.SetAPIKey(config.ProviderAnthropic, "sk-ant")
	creds.SetAPIKey(config.ProviderOpenRouter, "sk-or")
	creds.Google = &GoogleCredentials{RefreshToken: "rt", ClientID: "cid"}

	if err := s.Save(creds); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(creds, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestSetAPIKeyEmptyRemoves(t *testing.T) {
	creds := &Credentials{}
	creds.SetAPIKey(config.ProviderOpenAI, "k")
	creds.SetAPIKey(config.ProviderOpenAI, "")
	if got := creds.APIKey(config.ProviderOpenAI); got != "" {
		t.Errorf("APIKey = %q after removal", got)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); err == nil {
		t.Fatal("expected an error for a corrupt file")
	}
}

func TestNilCredentialsAreSafe(t *testing.T) {
	var creds *Credentials
	if creds.APIKey(config.ProviderGoogle) != "" || creds.HasGoogleOAuth() {
		t.Error("nil credentials should report nothing stored")
	}
}

// fakeGoogle serves a token endpoint and returns a flow pointed at it whose
// Open follows the redirect with the given query.
func fakeGoogle(t *testing.T, callbackQuery url.Values) *GoogleFlow {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "the-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)

	return &GoogleFlow{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		Open: func(consent string) {
			u, err := url.Parse(consent)
			if err != nil {
				t.Errorf("bad consent URL: %v", err)
				return
			}
			redirect := u.Query().Get("redirect_uri")
			go func() {
				resp, err := http.Get(redirect + "?" + callbackQuery.Encode())
				if err == nil {
					resp.Body.Close()
				}
			}()
		},
	}
}

func TestGoogleFlowExchangesCode(t *testing.T) {
	flow := fakeGoogle(t, url.Values{"code": {"the-code"}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := flow.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if token.AccessToken != "at" || token.RefreshToken != "rt" {
		t.Errorf("token = %+v", token)
	}

	creds := NewGoogleCredentials(flow.ClientID, flow.ClientSecret, token)
	if creds.RefreshToken != "rt" || creds.ClientID != "cid" || creds.TokenExpiry == "" {
		t.Errorf("credentials = %+v", creds)
	}
}

func TestGoogleFlowDenied(t *testing.T) {
	flow := fakeGoogle(t, url.Values{"error": {"access_denied"}})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := flow.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Fatalf("Run error = %v, want access_denied", err)
	}
}

func TestGoogleFlowCancelled(t *testing.T) {
	flow := fakeGoogle(t, nil)
	flow.Open = func(string) {}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := flow.Run(ctx); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestGoogleTokenSourceUsesStoredToken(t *testing.T) {
	creds := &GoogleCredentials{
		AccessToken:  "at",
		RefreshToken: "rt",
		TokenExpiry:  time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	tok, err := GoogleTokenSource(context.Background(), creds).Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "at" {
		t.Errorf("AccessToken = %q, want at", tok.AccessToken)
	}
}
