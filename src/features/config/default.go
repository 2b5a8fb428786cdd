package config

var defaultConfig = Config{
	Server: Server{
		PrintRoutes: false,
		Port:        3565,
	},
	Logger: Logger{
		Enabled: true,
		Level:   "info",
		Format:  "text",
	},
	Cache: Cache{
		Enabled:  true,
		Path:     "./matchcache.json",
		TTLHours: 24 * 7,
	},
	Providers: Providers{
		AcoustID: AcoustID{
			ClientKey: "", // Register at https://acoustid.org/api-key
		},
		Audd: Audd{
			Enabled:            false,
			Preferred:          false,
			Token:              "", // Register at https://dashboard.audd.io
			Mode:               "auto",
			EnterpriseFallback: false,
			SnippetOffset:      0,
		},
		MusicBrainz: MusicBrainz{
			Enabled:   true,
			UserAgent: "tuneid/1.0 (https://github.com/lunefort/tuneid)",
		},
	},
	Quota: Quota{
		Enabled:      false,
		DatabasePath: "./quota.db",
		WindowHours:  24,
	},
	Users: []User{},
	Batch: Batch{
		Extensions: []string{".mp3", ".flac", ".ogg", ".m4a", ".wav"},
		Watch: BatchWatch{
			Enabled: false,
			Path:    "./incoming",
		},
	},
	Jobs: Jobs{
		Log:     true,
		LogPath: "./logs/jobs",
	},
	Telegram: Telegram{
		Enabled: false,
		Token:   "", // Can be obtained with https://t.me/BotFather
	},
}
