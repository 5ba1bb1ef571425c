package config

// ConfigDiff describes what changed between two loaded configs. Only the log
// level can be applied without a restart; everything else is reported so the
// operator can be told a restart is needed.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired is true when a section changed that is wired up once
	// at startup (credentials, transcription tuning, settings backend,
	// listen address).
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Discord != new.Discord ||
		old.Gemini.APIKey != new.Gemini.APIKey ||
		old.Gemini.Model != new.Gemini.Model ||
		thinkingBudgetChanged(old.Gemini.ThinkingBudget, new.Gemini.ThinkingBudget) ||
		old.Transcription != new.Transcription ||
		old.Settings != new.Settings ||
		old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = true
	}

	return d
}

func thinkingBudgetChanged(old, new *int32) bool {
	if (old == nil) != (new == nil) {
		return true
	}
	return old != nil && *old != *new
}
