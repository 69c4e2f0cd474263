package backend

import (
	"context"
	"time"

	"custos/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// SourceResult contains the cached source and the cache it reads through.
type SourceResult struct {
	Source  *sheets.Cached
	Cleanup CleanupFunc
}

// Factory creates sources based on configuration
type Factory interface {
	// CreateSource creates a cached source for the provided config
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// Config holds configuration for source creation
type Config struct {
	// Source type
	Type SourceType

	// Local workbook
	DataFile  string
	DataSheet string

	// Private repository download
	RemoteURL        string
	RemoteToken      string
	RemoteAuthScheme string
	RemoteTimeout    time.Duration

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// Raw table cache
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// SourceType represents where the cost sheet is read from
type SourceType string

const (
	FileSource   SourceType = "file"
	RemoteSource SourceType = "remote"
	SheetsSource SourceType = "sheets"
	MemorySource SourceType = "memory"
)

// String implements fmt.Stringer
func (st SourceType) String() string {
	return string(st)
}

// IsValid returns true if the source type is valid
func (st SourceType) IsValid() bool {
	switch st {
	case FileSource, RemoteSource, SheetsSource, MemorySource:
		return true
	default:
		return false
	}
}
