package config

const (
	defaultConfigPath             = "~/.config/meetaudit/config.toml"
	defaultStateDir               = "~/.local/share/meetaudit"
	defaultLogDir                 = "~/.local/share/meetaudit/logs"
	defaultAPIBind                = "127.0.0.1:7491"
	defaultDispatchBaseURL        = "https://api.meetingbaas.com"
	defaultBotName                = "AI Meeting Auditor"
	defaultRecordingMode          = "speaker_view"
	defaultTranscriptionProvider  = "gladia"
	defaultDispatchTimeoutSeconds = 30
	defaultCalendarBaseURL        = "https://www.googleapis.com/calendar/v3"
	defaultCalendarMaxResults     = 10
	defaultStageSeconds           = 13
	defaultStillWorkingMessage    = "Finishing up..."
	defaultPollIntervalMillis     = 5000
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Dispatch: Dispatch{
			BaseURL:               defaultDispatchBaseURL,
			BotName:               defaultBotName,
			RecordingMode:         defaultRecordingMode,
			TranscriptionProvider: defaultTranscriptionProvider,
			TimeoutSeconds:        defaultDispatchTimeoutSeconds,
		},
		Calendar: Calendar{
			BaseURL:    defaultCalendarBaseURL,
			MaxResults: defaultCalendarMaxResults,
		},
		Analysis: Analysis{
			StageSeconds:        defaultStageSeconds,
			StillWorkingMessage: defaultStillWorkingMessage,
		},
		Reconcile: Reconcile{
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Dispatch:       true,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
