package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilent(t *testing.T) {
	if err := Initialize("silent"); err != nil {
		t.Fatalf("Initialize(silent) error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("silent logger should not be enabled at any level")
	}
}

func TestInitializeFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer SetLogger(nil)

	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled when APSWITCH_LOG_LEVEL=warn")
	}
	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled when APSWITCH_LOG_LEVEL=warn")
	}
}

func TestLogCredentialFallback(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogCredentialFallback("CN=apswitch.example.invalid")

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warnings) == 0 {
		t.Fatal("expected warning entries")
	}
	found := false
	for _, e := range warnings {
		if e.ContextMap()["subject"] == "CN=apswitch.example.invalid" {
			found = true
		}
	}
	if !found {
		t.Error("warning does not carry the credential subject")
	}
}

func TestNames(t *testing.T) {
	if got := TLSVersionName(0x0304); got != "TLS 1.3" {
		t.Errorf("TLSVersionName(0x0304) = %q", got)
	}
	if got := TLSVersionName(0x9999); got != "Unknown (0x9999)" {
		t.Errorf("TLSVersionName(0x9999) = %q", got)
	}
	if got := CipherSuiteName(0x1301); got != "TLS_AES_128_GCM_SHA256" {
		t.Errorf("CipherSuiteName(0x1301) = %q", got)
	}
	if got := CipherSuiteName(0x0001); got != "Unknown (0x0001)" {
		t.Errorf("CipherSuiteName(0x0001) = %q", got)
	}
}
