package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleScope = "https://www.googleapis.com/auth/generative-language"

// consentTimeout bounds how long the browser flow waits for the user.
const consentTimeout = 5 * time.Minute

// GoogleFlow runs the OAuth2 authorization-code flow against a loopback
// redirect. Endpoint and Open are replaceable for tests.
type GoogleFlow struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	// Open is called with the consent URL. Defaults to opening the system
	// browser.
	Open func(url string)
}

// NewGoogleFlow returns a flow against Google's production endpoint.
func NewGoogleFlow(clientID, clientSecret string) *GoogleFlow {
	return &GoogleFlow{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Open:         openBrowser,
	}
}

// Run starts a loopback server, sends the user to the consent page and
// exchanges the returned code for a token.
func (f *GoogleFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting local server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	conf := f.config()
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			msg := r.URL.Query().Get("error")
			if msg == "" {
				msg = "no authorization code received"
			}
			fmt.Fprintf(w, "<html><body><h2>Authorization failed</h2><p>%s</p><p>You can close this tab.</p></body></html>", html.EscapeString(msg))
			select {
			case errCh <- fmt.Errorf("OAuth callback error: %s", msg):
			default:
			}
			return
		}
		fmt.Fprint(w, "<html><body><h2>storyforge is authorized</h2><p>You can close this tab and return to the terminal.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("local server error: %w", err):
			default:
			}
		}
	}()
	defer server.Close()

	open := f.Open
	if open == nil {
		open = openBrowser
	}
	open(conf.AuthCodeURL("storyforge", oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	timer := time.NewTimer(consentTimeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, fmt.Errorf("authorization timed out after %s", consentTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

func (f *GoogleFlow) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Scopes:       []string{googleScope},
		Endpoint:     f.Endpoint,
	}
}

// NewGoogleCredentials records token together with the client that
// obtained it, which is needed to refresh it later.
func NewGoogleCredentials(clientID, clientSecret string, token *oauth2.Token) *GoogleCredentials {
	return &GoogleCredentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry.Format(time.RFC3339),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
}

// GoogleTokenSource returns an auto-refreshing token source for stored
// credentials.
func GoogleTokenSource(ctx context.Context, creds *GoogleCredentials) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       []string{googleScope},
		Endpoint:     google.Endpoint,
	}

	expiry, _ := time.Parse(time.RFC3339, creds.TokenExpiry)
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       expiry,
		TokenType:    "Bearer",
	}
	return conf.TokenSource(ctx, token)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
