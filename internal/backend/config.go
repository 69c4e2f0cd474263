package backend

import (
	"fmt"

	"custos/internal/config"
)

// FromAppConfig converts the application config to source config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := SourceType(appConfig.DataSource)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid source type in config: %s", appConfig.DataSource)
	}

	return Config{
		Type: sourceType,

		DataFile:  appConfig.DataFile,
		DataSheet: appConfig.DataSheet,

		RemoteURL:        appConfig.RemoteURL,
		RemoteToken:      appConfig.RemoteToken,
		RemoteAuthScheme: appConfig.RemoteAuthScheme,
		RemoteTimeout:    appConfig.RemoteTimeout,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		GoogleOAuthClientFile:    appConfig.GoogleOAuthClientFile,
		GoogleOAuthTokenFile:     appConfig.GoogleOAuthTokenFile,

		CacheTTL:        appConfig.CacheTTL,
		CacheMaxEntries: appConfig.CacheMaxEntries,
	}, nil
}

// Validate validates the source configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Type)
	}

	switch c.Type {
	case FileSource:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for file source")
		}
	case RemoteSource:
		// Missing URL or token surfaces on load as the no-data state.
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
	case MemorySource:
		// Memory source serves the built-in sample
	}

	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache size must be at least 1, got %d", c.CacheMaxEntries)
	}

	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{FileSource, RemoteSource, SheetsSource, MemorySource}
}

// GetSourceTypeStrings returns all valid source type strings
func GetSourceTypeStrings() []string {
	types := GetSourceTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
