package config

// Validate checks the assembled configuration for values that would make
// the system misbehave rather than merely degrade.
func Validate(cfg *Config) error {
	if cfg.Scheduler.MaxConcurrentSessions < 1 {
		return NewValidationError("scheduler", "max_concurrent_sessions", ErrInvalidValue)
	}
	if cfg.Session.ChunkInterval <= 0 {
		return NewValidationError("session", "chunk_interval", ErrInvalidValue)
	}
	if cfg.Session.EndDetectorRequiredPolls < 1 {
		return NewValidationError("session", "end_detector_required_polls", ErrInvalidValue)
	}
	if cfg.Browser.ProfilesRoot == "" {
		return NewValidationError("browser", "profiles_root", ErrMissingRequiredField)
	}
	if cfg.Identity.BotDisplayName == "" {
		return NewValidationError("identity", "bot_display_name", ErrMissingRequiredField)
	}
	if cfg.Artifacts.LocalRoot == "" {
		return NewValidationError("artifacts", "local_root", ErrMissingRequiredField)
	}
	return nil
}
