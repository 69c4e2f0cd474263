package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"custos/internal/core"
	applog "custos/internal/log"
	ports "custos/internal/sheets"
)

// Config configures a Sheets-backed source.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// OAuth user credentials, as written by custos-oauth-init. Used when
	// OAuthTokenFile is set.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
	// Columns bounds the read range; "A:Z" when empty.
	Columns string
}

// Client reads the cost sheet from a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	columns       string
}

var _ ports.Source = (*Client)(nil)

// New creates a client authenticated with a service account, or with a
// stored OAuth user token when cfg.OAuthTokenFile is set.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	cols := strings.TrimSpace(cfg.Columns)
	if cols == "" {
		cols = "A:Z"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     strings.TrimSpace(cfg.SheetName),
		columns:       cols,
	}
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentLoader)

	if tokenFile := strings.TrimSpace(cfg.OAuthTokenFile); tokenFile != "" {
		logger.InfoContext(ctx, "Using stored OAuth token", "path", tokenFile)
		ts, err := oauthTokenSource(ctx, cfg, tokenFile)
		if err != nil {
			return nil, err
		}
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		logger.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// OAuthConfig builds the read-only OAuth client configuration from the
// client secret JSON downloaded from the Google console.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

func oauthTokenSource(ctx context.Context, cfg Config, tokenFile string) (oauth2.TokenSource, error) {
	clientJSON := []byte(strings.TrimSpace(cfg.OAuthClientJSON))
	if len(clientJSON) == 0 {
		file := strings.TrimSpace(cfg.OAuthClientFile)
		if file == "" {
			return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		clientJSON = data
	}
	oauthCfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return oauthCfg.TokenSource(ctx, &tok), nil
}

// Load reads the configured range with unformatted values so numbers and
// dates arrive as numbers rather than locale-formatted text.
func (c *Client) Load(ctx context.Context) (core.RawTable, error) {
	if c.svc == nil {
		return core.RawTable{}, errors.New("sheets service not initialized")
	}
	rng := c.readRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.RawTable{}, fmt.Errorf("read %s: %w", rng, err)
	}
	return valuesToTable(resp.Values), nil
}

// SourceKey identifies the spreadsheet range.
func (c *Client) SourceKey() string {
	return fmt.Sprintf("sheets:%s/%s", c.spreadsheetID, c.readRange())
}

func (c *Client) readRange() string {
	if c.sheetName == "" {
		return c.columns
	}
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), c.columns)
}
