package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Reasoning model (Cerebras OpenAI-compatible API).
	CerebrasAPIKey  string
	CerebrasBaseURL string
	Model           string
	SystemPrompt    string
	MaxTokens       int
	Temperature     float64
	MaxToolRounds   int
	TurnTimeout     time.Duration

	// Voice I/O (Cartesia STT + TTS).
	CartesiaAPIKey  string
	CartesiaBaseURL string
	SttModel        string
	TtsModel        string
	Voice           string
	TtsSampleRate   int

	// Endpointing thresholds operate on normalized RMS energy in [0, 1].
	SpeechThreshold  float64
	BargeInThreshold float64
	MinSpeech        time.Duration
	MinSilence       time.Duration
	PrefixPadding    time.Duration
	MaxUtterance     time.Duration

	// Tool backends. A tool whose key is unset is simply not registered.
	TavilyAPIKey      string
	TavilyBaseURL     string
	OpenWeatherAPIKey string
	OpenWeatherURL    string
	FirecrawlAPIKey   string
	FirecrawlBaseURL  string
	SerperAPIKey      string
	SerperBaseURL     string
	ChromaURL         string
	ChromaCollection  string
	MaxSearchResults  int

	ToolTimeout      time.Duration
	MaxParallelTools int

	// Session lifecycle.
	SessionIdleTimeout time.Duration
	EvictInterval      time.Duration

	// Live WebSocket limits.
	MaxAudioFrameBytes  int
	MaxJSONMessageBytes int64
	MaxAudioFPS         int
	InboundBurstSeconds int
	WSWriteTimeout      time.Duration
	HandshakeTimeout    time.Duration

	// Optional turn archive (Postgres DSN; empty disables archiving).
	ArchiveDSN string

	ShutdownGracePeriod time.Duration
	MetricsNamespace    string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOICED_ADDR", ":8080"),
		CerebrasAPIKey:      strings.TrimSpace(os.Getenv("CEREBRAS_API_KEY")),
		CerebrasBaseURL:     envOr("VOICED_CEREBRAS_BASE_URL", "https://api.cerebras.ai/v1"),
		Model:               envOr("VOICED_MODEL", "llama-3.3-70b"),
		SystemPrompt:        envOr("VOICED_SYSTEM_PROMPT", defaultSystemPrompt),
		MaxTokens:           envIntOr("VOICED_MAX_TOKENS", 1024),
		Temperature:         envFloat64Or("VOICED_TEMPERATURE", 0.7),
		MaxToolRounds:       envIntOr("VOICED_MAX_TOOL_ROUNDS", 5),
		TurnTimeout:         envDurationOr("VOICED_TURN_TIMEOUT", 2*time.Minute),
		CartesiaAPIKey:      strings.TrimSpace(os.Getenv("CARTESIA_API_KEY")),
		CartesiaBaseURL:     envOr("VOICED_CARTESIA_BASE_URL", "https://api.cartesia.ai"),
		SttModel:            envOr("VOICED_STT_MODEL", "ink-whisper"),
		TtsModel:            envOr("VOICED_TTS_MODEL", "sonic-3"),
		Voice:               envOr("VOICED_VOICE", "694f9389-aac1-45b6-b726-9d9369183238"),
		TtsSampleRate:       envIntOr("VOICED_TTS_SAMPLE_RATE", 24000),
		SpeechThreshold:     envFloat64Or("VOICED_SPEECH_THRESHOLD", 0.012),
		BargeInThreshold:    envFloat64Or("VOICED_BARGE_IN_THRESHOLD", 0.035),
		MinSpeech:           envDurationOr("VOICED_MIN_SPEECH", 200*time.Millisecond),
		MinSilence:          envDurationOr("VOICED_MIN_SILENCE", 700*time.Millisecond),
		PrefixPadding:       envDurationOr("VOICED_PREFIX_PADDING", 300*time.Millisecond),
		MaxUtterance:        envDurationOr("VOICED_MAX_UTTERANCE", 30*time.Second),
		TavilyAPIKey:        strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TavilyBaseURL:       envOr("VOICED_TAVILY_BASE_URL", "https://api.tavily.com"),
		OpenWeatherAPIKey:   strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		OpenWeatherURL:      envOr("VOICED_OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		FirecrawlAPIKey:     strings.TrimSpace(os.Getenv("FIRECRAWL_API_KEY")),
		FirecrawlBaseURL:    envOr("VOICED_FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		SerperAPIKey:        strings.TrimSpace(os.Getenv("SERPER_API_KEY")),
		SerperBaseURL:       envOr("VOICED_SERPER_BASE_URL", "https://google.serper.dev"),
		ChromaURL:           envOr("VOICED_CHROMA_URL", ""),
		ChromaCollection:    envOr("VOICED_CHROMA_COLLECTION", "documents"),
		MaxSearchResults:    envIntOr("VOICED_MAX_SEARCH_RESULTS", 5),
		ToolTimeout:         envDurationOr("VOICED_TOOL_TIMEOUT", 15*time.Second),
		MaxParallelTools:    envIntOr("VOICED_MAX_PARALLEL_TOOLS", 4),
		SessionIdleTimeout:  envDurationOr("VOICED_SESSION_IDLE_TIMEOUT", 10*time.Minute),
		EvictInterval:       envDurationOr("VOICED_EVICT_INTERVAL", time.Minute),
		MaxAudioFrameBytes:  envIntOr("VOICED_MAX_AUDIO_FRAME_BYTES", 8192),
		MaxJSONMessageBytes: envInt64Or("VOICED_MAX_JSON_MESSAGE_BYTES", 64*1024),
		MaxAudioFPS:         envIntOr("VOICED_MAX_AUDIO_FPS", 120),
		InboundBurstSeconds: envIntOr("VOICED_INBOUND_BURST_SECONDS", 2),
		WSWriteTimeout:      envDurationOr("VOICED_WS_WRITE_TIMEOUT", 5*time.Second),
		HandshakeTimeout:    envDurationOr("VOICED_HANDSHAKE_TIMEOUT", 5*time.Second),
		ArchiveDSN:          strings.TrimSpace(os.Getenv("VOICED_ARCHIVE_DSN")),
		ShutdownGracePeriod: envDurationOr("VOICED_SHUTDOWN_GRACE_PERIOD", 15*time.Second),
		MetricsNamespace:    envOr("VOICED_METRICS_NAMESPACE", "voiced"),
	}

	if cfg.CerebrasAPIKey == "" {
		return Config{}, fmt.Errorf("CEREBRAS_API_KEY must be set")
	}
	if cfg.CartesiaAPIKey == "" {
		return Config{}, fmt.Errorf("CARTESIA_API_KEY must be set")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_TOKENS must be > 0")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("VOICED_TEMPERATURE must be in [0, 2]")
	}
	if cfg.MaxToolRounds <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_TOOL_ROUNDS must be > 0")
	}
	if cfg.TurnTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICED_TURN_TIMEOUT must be > 0")
	}
	if cfg.TtsSampleRate <= 0 {
		return Config{}, fmt.Errorf("VOICED_TTS_SAMPLE_RATE must be > 0")
	}
	if cfg.SpeechThreshold <= 0 || cfg.SpeechThreshold >= 1 {
		return Config{}, fmt.Errorf("VOICED_SPEECH_THRESHOLD must be in (0, 1)")
	}
	if cfg.BargeInThreshold <= cfg.SpeechThreshold || cfg.BargeInThreshold >= 1 {
		return Config{}, fmt.Errorf("VOICED_BARGE_IN_THRESHOLD must be in (VOICED_SPEECH_THRESHOLD, 1)")
	}
	if cfg.MinSpeech <= 0 {
		return Config{}, fmt.Errorf("VOICED_MIN_SPEECH must be > 0")
	}
	if cfg.MinSilence <= 0 {
		return Config{}, fmt.Errorf("VOICED_MIN_SILENCE must be > 0")
	}
	if cfg.PrefixPadding < 0 {
		return Config{}, fmt.Errorf("VOICED_PREFIX_PADDING must be >= 0")
	}
	if cfg.MaxUtterance <= cfg.MinSpeech {
		return Config{}, fmt.Errorf("VOICED_MAX_UTTERANCE must be > VOICED_MIN_SPEECH")
	}
	if cfg.MaxSearchResults <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_SEARCH_RESULTS must be > 0")
	}
	if cfg.ToolTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICED_TOOL_TIMEOUT must be > 0")
	}
	if cfg.MaxParallelTools <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_PARALLEL_TOOLS must be > 0")
	}
	if cfg.SessionIdleTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICED_SESSION_IDLE_TIMEOUT must be > 0")
	}
	if cfg.EvictInterval <= 0 {
		return Config{}, fmt.Errorf("VOICED_EVICT_INTERVAL must be > 0")
	}
	if cfg.MaxAudioFrameBytes <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_AUDIO_FRAME_BYTES must be > 0")
	}
	if cfg.MaxJSONMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_JSON_MESSAGE_BYTES must be > 0")
	}
	if cfg.MaxAudioFPS < 0 {
		return Config{}, fmt.Errorf("VOICED_MAX_AUDIO_FPS must be >= 0")
	}
	if cfg.MaxAudioFPS > 0 && cfg.InboundBurstSeconds < 1 {
		return Config{}, fmt.Errorf("VOICED_INBOUND_BURST_SECONDS must be >= 1 when VOICED_MAX_AUDIO_FPS is enabled")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICED_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICED_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICED_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

const defaultSystemPrompt = "You are a helpful voice assistant. Keep answers short and conversational; they will be read aloud. Use the available tools when the user asks about current information."

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
