package config

// Defaults returns the configuration used when no file is present. The
// token still has to come from the environment.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 300,
		},
		Access: AccessConfig{
			Mode: AccessAllowlist,
		},
		Inspect: InspectConfig{
			TimeoutSeconds: 60,
			MaxBodyBytes:   20 << 20,
		},
		Platform: PlatformConfig{
			DomainSuffix: "tiktok.com",
		},
		Downloader: DownloaderConfig{
			Enabled: false,
			Command: "yt-dlp",
			TempDir: "/tmp/yt-dlp",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9190",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
