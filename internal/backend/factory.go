package backend

import (
	"context"
	"fmt"
	"time"

	"custos/internal/cache"
	applog "custos/internal/log"
	"custos/internal/sheets"
	"custos/internal/sheets/file"
	gsheet "custos/internal/sheets/google"
	"custos/internal/sheets/memory"
	"custos/internal/sheets/remote"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger   *applog.Logger
	observer func(result string)
}

// NewFactory creates a new source factory. observer, when not nil,
// receives every cache hit or miss.
func NewFactory(logger *applog.Logger, observer func(result string)) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger:   logger.WithComponent(applog.ComponentLoader),
		observer: observer,
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		src sheets.Source
		err error
	)
	switch config.Type {
	case FileSource:
		src = file.New(config.DataFile, config.DataSheet)
	case RemoteSource:
		src = f.createRemoteSource(config)
	case SheetsSource:
		src, err = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
	case MemorySource:
		src = memory.NewSample()
	default:
		return nil, fmt.Errorf("unsupported source type: %s", config.Type)
	}

	tables := cache.NewTableCache(config.CacheMaxEntries, config.CacheTTL)
	if f.observer != nil {
		tables.Observe(f.observer)
	}
	manager := cache.NewManager(f.logger)
	manager.Register(tables)
	manager.StartCleanup(cleanupInterval(config.CacheTTL))

	f.logger.Info("Initialized cost sheet source",
		"type", config.Type.String(),
		applog.FieldSource, src.SourceKey(),
		"cache_ttl", config.CacheTTL.String())

	return &SourceResult{
		Source: sheets.NewCached(src, tables),
		Cleanup: func() error {
			manager.Stop()
			tables.InvalidateAll()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createRemoteSource(config Config) sheets.Source {
	if config.RemoteURL == "" || config.RemoteToken == "" {
		f.logger.Warn("Remote source missing PRIVATE_REPO_URL or GITHUB_TOKEN, dashboard will show no data")
	}
	return remote.New(remote.Config{
		URL:        config.RemoteURL,
		Token:      config.RemoteToken,
		AuthScheme: config.RemoteAuthScheme,
		Sheet:      config.DataSheet,
		Timeout:    config.RemoteTimeout,
	})
}

// cleanupInterval sweeps at half the TTL, at most once a second. A zero
// TTL never expires, so no sweeper runs.
func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return max(ttl/2, time.Second)
}
