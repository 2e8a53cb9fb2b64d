package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViper(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		wantErr   bool
		check     func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("Port = %s, want 8080", cfg.Port)
				}
				if cfg.LogLevel != slog.LevelInfo {
					t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
				}
				if cfg.SeriesBatchSize != 10 {
					t.Errorf("SeriesBatchSize = %d, want 10", cfg.SeriesBatchSize)
				}
				if cfg.PasswordResetTTL != time.Hour {
					t.Errorf("PasswordResetTTL = %v, want 1h", cfg.PasswordResetTTL)
				}
				if len(cfg.Events.KafkaBrokers) != 0 {
					t.Errorf("KafkaBrokers = %v, want none", cfg.Events.KafkaBrokers)
				}
			},
		},
		{
			name: "brokers and level",
			overrides: map[string]interface{}{
				"kafka_brokers": "k1:9092, k2:9092,,",
				"log_level":     "debug",
			},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
					t.Errorf("KafkaBrokers = %v", cfg.Events.KafkaBrokers)
				}
				if cfg.LogLevel != slog.LevelDebug {
					t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name:      "bad log level",
			overrides: map[string]interface{}{"log_level": "loud"},
			wantErr:   true,
		},
		{
			name: "production needs secret",
			overrides: map[string]interface{}{
				"environment": "production",
			},
			wantErr: true,
		},
		{
			name:      "admin without password",
			overrides: map[string]interface{}{"admin_email": "admin@studio.test"},
			wantErr:   true,
		},
		{
			name:      "zero batch size",
			overrides: map[string]interface{}{"series_batch_size": 0},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			for k, val := range tt.overrides {
				v.Set(k, val)
			}

			cfg, err := fromViper(v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("fromViper() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
