package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/voxweave-labs/voxweave-core/internal/tuning"
	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// StoreConfig locates the durable render state: the content-addressed blob
// root for chunk audio and the SQLite database for jobs and manifests.
type StoreConfig struct {
	BlobRoot     string `yaml:"blob_root"`
	DatabasePath string `yaml:"database_path"`
	Ephemeral    bool   `yaml:"ephemeral"`
}

// ProviderConfig selects the speech-synthesis backend.
type ProviderConfig struct {
	Mode      string `yaml:"mode"` // mock, exec, http
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Command   string `yaml:"command"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// SynthesisConfig bounds concurrent dispatch against the provider.
type SynthesisConfig struct {
	Workers      int `yaml:"workers"`
	BatchDelayMS int `yaml:"batch_delay_ms"`
	MaxScriptLen int `yaml:"max_script_len"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Store       StoreConfig     `yaml:"store"`
	Provider    ProviderConfig  `yaml:"provider"`
	Synthesis   SynthesisConfig `yaml:"synthesis"`
	Defaults    tuning.Settings `yaml:"defaults"`
}

func Default() Config {
	return Config{
		RuntimeName: "voxweave-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Store: StoreConfig{
			BlobRoot:     "./data/blobs",
			DatabasePath: "./data/voxweave-renders.db",
		},
		Provider: ProviderConfig{
			Mode:      "mock",
			TimeoutMS: 45000,
		},
		Synthesis: SynthesisConfig{
			Workers:      4,
			BatchDelayMS: 250,
			MaxScriptLen: 200000,
		},
		Defaults: tuning.Default(),
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "VOXWEAVE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VOXWEAVE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VOXWEAVE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VOXWEAVE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VOXWEAVE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VOXWEAVE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VOXWEAVE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VOXWEAVE_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "VOXWEAVE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VOXWEAVE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VOXWEAVE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VOXWEAVE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VOXWEAVE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VOXWEAVE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VOXWEAVE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VOXWEAVE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VOXWEAVE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Store.BlobRoot, "VOXWEAVE_STORE_BLOB_ROOT")
	overrideString(&cfg.Store.DatabasePath, "VOXWEAVE_STORE_DATABASE_PATH")
	overrideBool(&cfg.Store.Ephemeral, "VOXWEAVE_STORE_EPHEMERAL")
	overrideString(&cfg.Provider.Mode, "VOXWEAVE_PROVIDER_MODE")
	overrideString(&cfg.Provider.Endpoint, "VOXWEAVE_PROVIDER_ENDPOINT")
	overrideString(&cfg.Provider.APIKey, "VOXWEAVE_PROVIDER_API_KEY")
	overrideString(&cfg.Provider.Command, "VOXWEAVE_PROVIDER_COMMAND")
	overrideInt(&cfg.Provider.TimeoutMS, "VOXWEAVE_PROVIDER_TIMEOUT_MS")
	overrideInt(&cfg.Synthesis.Workers, "VOXWEAVE_SYNTHESIS_WORKERS")
	overrideInt(&cfg.Synthesis.BatchDelayMS, "VOXWEAVE_SYNTHESIS_BATCH_DELAY_MS")
	overrideInt(&cfg.Synthesis.MaxScriptLen, "VOXWEAVE_SYNTHESIS_MAX_SCRIPT_LEN")
	overrideString(&cfg.Defaults.Voice.ModelID, "VOXWEAVE_VOICE_MODEL_ID")
	overrideString(&cfg.Defaults.Voice.VoiceID, "VOXWEAVE_VOICE_VOICE_ID")
	overrideFloat(&cfg.Defaults.Voice.Stability, "VOXWEAVE_VOICE_STABILITY")
	overrideFloat(&cfg.Defaults.Voice.Similarity, "VOXWEAVE_VOICE_SIMILARITY")
	overrideFloat(&cfg.Defaults.Chunking.TargetSeconds, "VOXWEAVE_CHUNKING_TARGET_SECONDS")
	overrideFloat(&cfg.Defaults.Mastering.TargetLUFS, "VOXWEAVE_MASTERING_TARGET_LUFS")
	overrideFloat(&cfg.Defaults.Mastering.TruePeakDB, "VOXWEAVE_MASTERING_TRUE_PEAK_DB")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if !cfg.Store.Ephemeral {
		if cfg.Store.BlobRoot == "" {
			return errors.New("store.blob_root must not be empty")
		}
		if cfg.Store.DatabasePath == "" {
			return errors.New("store.database_path must not be empty")
		}
	}
	switch cfg.Provider.Mode {
	case "mock", "exec", "http":
	default:
		return errors.New("provider.mode must be one of mock|exec|http")
	}
	if cfg.Provider.Mode == "exec" && cfg.Provider.Command == "" {
		return errors.New("provider.command must be set when mode=exec")
	}
	if cfg.Provider.Mode == "http" {
		if cfg.Provider.Endpoint == "" {
			return errors.New("provider.endpoint must be set when mode=http")
		}
		if cfg.Provider.APIKey == "" {
			return errors.New("provider.api_key must be set when mode=http")
		}
	}
	if cfg.Provider.TimeoutMS <= 0 {
		return errors.New("provider.timeout_ms must be positive")
	}
	if cfg.Synthesis.Workers <= 0 {
		return errors.New("synthesis.workers must be >= 1")
	}
	if cfg.Synthesis.BatchDelayMS < 0 {
		return errors.New("synthesis.batch_delay_ms must be >= 0")
	}
	if cfg.Synthesis.MaxScriptLen <= 0 {
		return errors.New("synthesis.max_script_len must be positive")
	}
	return validateTuning(cfg.Defaults)
}

func validateTuning(s tuning.Settings) error {
	switch s.Voice.ModelClass {
	case tuning.ModelClassFull, tuning.ModelClassCue, tuning.ModelClassBare:
	default:
		return errors.New("defaults.voice.model_class must be one of full|cue|bare")
	}
	if s.Voice.ModelID == "" || s.Voice.VoiceID == "" {
		return errors.New("defaults.voice.model_id and voice_id must not be empty")
	}
	if s.Voice.RateMultiplier <= 0 {
		return errors.New("defaults.voice.rate_multiplier must be positive")
	}
	if s.Timing.MinFloorMS < 0 || s.Timing.ModelMaxMS <= s.Timing.MinFloorMS {
		return errors.New("defaults.timing: model_max_ms must be greater than min_floor_ms")
	}
	if s.Chunking.TargetSeconds <= 0 {
		return errors.New("defaults.chunking.target_seconds must be positive")
	}
	if s.Chunking.MaxChars <= s.Chunking.MinChars {
		return errors.New("defaults.chunking.max_chars must be greater than min_chars")
	}
	if s.Chunking.BaseWPM <= 0 {
		return errors.New("defaults.chunking.base_wpm must be positive")
	}
	if s.Chunking.ContextSentences < 0 {
		return errors.New("defaults.chunking.context_sentences must be >= 0")
	}
	if s.Export.SampleRate <= 0 {
		return errors.New("defaults.export.sample_rate must be positive")
	}
	if s.Export.Channels != 1 && s.Export.Channels != 2 {
		return errors.New("defaults.export.channels must be 1 or 2")
	}
	if s.Export.Format != "wav" {
		return errors.New("defaults.export.format must be wav")
	}
	if s.Mastering.TruePeakDB > 0 {
		return errors.New("defaults.mastering.true_peak_db must be <= 0")
	}
	return nil
}
