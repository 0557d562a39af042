package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader loads configuration from environment variables. Tests can override
// Lookup to inject deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load retrieves the bridge configuration from environment variables and
// validates it.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	cfg := Config{
		ListenAddr: DefaultListenAddr,
		HealthAddr: DefaultHealthAddr,
	}

	if raw, ok := l.Lookup("BRIDGE_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		if err := applyJSON(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, "BRIDGE_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "BRIDGE_HEALTH_ADDR", &cfg.HealthAddr)
	overrideString(l.Lookup, "BRIDGE_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "BRIDGE_MODEL_VARIANT", &cfg.ModelVariant)
	overrideString(l.Lookup, "BRIDGE_LANGUAGE", &cfg.Language)
	overrideString(l.Lookup, "BRIDGE_DATA_DIR", &cfg.DataDir)
	overrideString(l.Lookup, "BRIDGE_MODEL_PATH", &cfg.ModelPath)
	overrideBool(l.Lookup, "BRIDGE_USE_STUB_ENGINE", &cfg.UseStubEngine)
	overrideBoolPtr(l.Lookup, "WHISPERCPP_USE_GPU", &cfg.UseGPU)
	overrideIntPtr(l.Lookup, "WHISPERCPP_THREADS", &cfg.Threads)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyJSON(raw string, cfg *Config) error {
	type jsonConfig struct {
		ListenAddr    string `json:"listen_addr"`
		HealthAddr    string `json:"health_addr"`
		ModelVariant  string `json:"model_variant"`
		Language      string `json:"language"`
		LogLevel      string `json:"log_level"`
		DataDir       string `json:"data_dir"`
		ModelPath     string `json:"model_path"`
		UseStubEngine *bool  `json:"use_stub_engine"`
		UseGPU        *bool  `json:"use_gpu"`
		Threads       *int   `json:"threads"`
	}
	var payload jsonConfig
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("config: decode BRIDGE_CONFIG: %w", err)
	}
	if payload.ListenAddr != "" {
		cfg.ListenAddr = payload.ListenAddr
	}
	if payload.HealthAddr != "" {
		cfg.HealthAddr = payload.HealthAddr
	}
	if payload.ModelVariant != "" {
		cfg.ModelVariant = payload.ModelVariant
	}
	if payload.Language != "" {
		cfg.Language = payload.Language
	}
	if payload.LogLevel != "" {
		cfg.LogLevel = payload.LogLevel
	}
	if payload.DataDir != "" {
		cfg.DataDir = payload.DataDir
	}
	if payload.ModelPath != "" {
		cfg.ModelPath = payload.ModelPath
	}
	if payload.UseStubEngine != nil {
		cfg.UseStubEngine = *payload.UseStubEngine
	}
	if payload.UseGPU != nil {
		cfg.UseGPU = payload.UseGPU
	}
	if payload.Threads != nil && *payload.Threads > 0 {
		cfg.Threads = payload.Threads
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideBoolPtr(lookup func(string) (string, bool), key string, target **bool) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = &parsed
		}
	}
}

func overrideIntPtr(lookup func(string) (string, bool), key string, target **int) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			*target = &parsed
		}
	}
}
