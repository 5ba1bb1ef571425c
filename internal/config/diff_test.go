package config

import "testing"

func baseConfig() *Config {
	return &Config{
		Server:  ServerConfig{LogLevel: LogInfo, ListenAddr: ":8080"},
		Discord: DiscordConfig{Token: "t"},
		Gemini:  GeminiConfig{APIKey: "k", Model: "gemini-2.5-flash"},
	}
}

func TestDiffNoChanges(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	d := Diff(old, new)
	if d.LogLevelChanged || d.RestartRequired {
		t.Fatalf("Diff of identical configs = %+v, want empty", d)
	}
}

func TestDiffLogLevel(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Fatalf("Diff = %+v, want log level change to debug", d)
	}
	if d.RestartRequired {
		t.Error("log level change must not require a restart")
	}
}

func TestDiffRestartRequired(t *testing.T) {
	cases := map[string]func(*Config){
		"token":       func(c *Config) { c.Discord.Token = "other" },
		"model":       func(c *Config) { c.Gemini.Model = "gemini-2.5-pro" },
		"concurrency": func(c *Config) { c.Transcription.MaxConcurrent = 7 },
		"backend":     func(c *Config) { c.Settings.PostgresDSN = "postgres://x" },
		"listen":      func(c *Config) { c.Server.ListenAddr = ":9999" },
		"thinking":    func(c *Config) { b := int32(-1); c.Gemini.ThinkingBudget = &b },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			old, new := baseConfig(), baseConfig()
			mutate(new)
			if d := Diff(old, new); !d.RestartRequired {
				t.Fatalf("Diff = %+v, want restart required", d)
			}
		})
	}
}
