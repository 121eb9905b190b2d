package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace:      "~/.itassist/workspace",
			LogLevel:       "info",
			MaxFixAttempts: 2,
		},
		Provider: ProviderConfig{
			URL:            "http://localhost:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Security: SecurityConfig{
			DefaultTier:           "safe",
			ConfirmTimeoutSeconds: 60,
			AuditLog:              true,
		},
		Executor: ExecutorConfig{
			TimeoutSeconds: 30,
			MaxOutputBytes: 65536,
		},
		History: HistoryConfig{
			Enabled:                   true,
			DBPath:                    "~/.itassist/history.db",
			MaxHistoryPerConversation: 50,
		},
	}
}
