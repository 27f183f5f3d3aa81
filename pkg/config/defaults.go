package config

import "time"

// DefaultSchedulerConfig returns the built-in scheduler defaults.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		MaxConcurrentSessions: 10,
		QueueCapacity:         0,
		ShutdownGracePeriod:   2 * time.Minute,
	}
}

// DefaultSessionConfig returns the built-in per-session timing defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		StartTimeout:              30 * time.Second,
		ChunkInterval:             30 * time.Second,
		RosterPollInterval:        30 * time.Second,
		CaptionsPollInterval:      5 * time.Second,
		BotNameDetectDelay:        3 * time.Second,
		EndDetectorPollInterval:   5 * time.Second,
		EndDetectorRequiredPolls:  3,
		EndDetectorConfirmDelay:   15 * time.Second,
		DisconnectionRecheckDelay: 10 * time.Second,
	}
}

// DefaultBrowserConfig returns the built-in browser automation defaults.
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:              false,
		ProfilesRoot:          "profiles",
		DefaultProfileName:    "google_main",
		NavigationTimeout:     30 * time.Second,
		ClickTimeout:          3 * time.Second,
		ExtractionTimeout:     10 * time.Second,
		CaptionsScrapeTimeout: 2 * time.Second,
	}
}

// DefaultIdentityConfig returns the built-in bot-identity defaults.
func DefaultIdentityConfig() *IdentityConfig {
	return &IdentityConfig{
		BotDisplayName:        "Meeting Bot",
		BotAccountIdentifiers: []string{"meeting bot", "bot"},
	}
}

// DefaultDiarizationConfig returns the built-in diarisation defaults.
func DefaultDiarizationConfig() *DiarizationConfig {
	return &DiarizationConfig{
		RequestTimeout:     10 * time.Second,
		RateLimitPerSecond: 2,
	}
}

// DefaultArtifactsConfig returns the built-in artifact-store defaults.
func DefaultArtifactsConfig() *ArtifactsConfig {
	return &ArtifactsConfig{
		LocalRoot:          "data",
		RequestTimeout:     10 * time.Second,
		RateLimitPerSecond: 5,
	}
}

// DefaultCredentialsConfig returns the built-in credential vault defaults.
func DefaultCredentialsConfig() *CredentialsConfig {
	return &CredentialsConfig{
		StorePath: "data/credentials.enc",
		SecretEnv: "CREDENTIAL_VAULT_SECRET",
	}
}
