// Command custos-oauth-init runs the OAuth consent flow once and stores a
// read-only Sheets token for the sheets data source.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"

	"custos/internal/cli"
	applog "custos/internal/log"
	gsheet "custos/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := applog.New(applog.DefaultConfig())

	clientJSON, err := readClientJSON()
	if err != nil {
		logger.Error("OAuth client not configured", applog.FieldError, err)
		os.Exit(1)
	}
	cfg, err := gsheet.OAuthConfig(clientJSON)
	if err != nil {
		logger.Error("Invalid OAuth client", applog.FieldError, err)
		os.Exit(1)
	}

	// The redirect URI must be registered on the OAuth client.
	redirectPort := getenv("OAUTH_REDIRECT_PORT", "8085")
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: "127.0.0.1:" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Pode fechar esta janela e voltar ao terminal.")
		select {
		case codeCh <- r.URL.Query().Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Callback server failed", applog.FieldError, err)
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("custos-oauth-init", oauth2.AccessTypeOffline))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			logger.Error("Token exchange failed", applog.FieldError, err)
			os.Exit(1)
		}
		outFile := getenv("GOOGLE_OAUTH_TOKEN_FILE", "token.json")
		if err := saveToken(outFile, tok); err != nil {
			logger.Error("Failed to save token", applog.FieldError, err)
			os.Exit(1)
		}
		fmt.Printf("Saved token to %s\n", outFile)
	case <-ctx.Done():
		logger.Error("Authorization aborted", applog.FieldError, ctx.Err())
		os.Exit(1)
	}
}

func readClientJSON() ([]byte, error) {
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); v != "" {
		return []byte(v), nil
	}
	if path := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

// saveToken writes tok readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
