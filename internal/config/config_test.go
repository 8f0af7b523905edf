package config

import (
	"testing"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Paths.InstallDir != "/opt/gate-apr-bot" {
		t.Errorf("Paths.InstallDir = %q, want %q", cfg.Paths.InstallDir, "/opt/gate-apr-bot")
	}
	if cfg.Bot.Entrypoint != "telegram_bot.py" {
		t.Errorf("Bot.Entrypoint = %q, want %q", cfg.Bot.Entrypoint, "telegram_bot.py")
	}
	if cfg.Service.UnitName != "gate-apr-bot.service" {
		t.Errorf("Service.UnitName = %q, want %q", cfg.Service.UnitName, "gate-apr-bot.service")
	}
	if cfg.Service.User != "gatebot" {
		t.Errorf("Service.User = %q, want %q", cfg.Service.User, "gatebot")
	}
	if cfg.Timeouts.StartVerify != 10*time.Second {
		t.Errorf("Timeouts.StartVerify = %v, want 10s", cfg.Timeouts.StartVerify)
	}
	if cfg.Timeouts.StopGrace != 5*time.Second {
		t.Errorf("Timeouts.StopGrace = %v, want 5s", cfg.Timeouts.StopGrace)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestApplyDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.applyDerivedPaths()

	if cfg.Paths.VenvDir != "/opt/gate-apr-bot/venv" {
		t.Errorf("VenvDir = %q, want %q", cfg.Paths.VenvDir, "/opt/gate-apr-bot/venv")
	}
	if cfg.Paths.EnvFile != "/opt/gate-apr-bot/.env" {
		t.Errorf("EnvFile = %q, want %q", cfg.Paths.EnvFile, "/opt/gate-apr-bot/.env")
	}
	if cfg.Paths.LogFile != "/opt/gate-apr-bot/bot.log" {
		t.Errorf("LogFile = %q, want %q", cfg.Paths.LogFile, "/opt/gate-apr-bot/bot.log")
	}
}

func TestApplyDerivedPathsKeepsExplicit(t *testing.T) {
	cfg := Default()
	cfg.Paths.LogFile = "/var/log/bot.log"
	cfg.applyDerivedPaths()

	if cfg.Paths.LogFile != "/var/log/bot.log" {
		t.Errorf("explicit LogFile was overwritten: %q", cfg.Paths.LogFile)
	}
}

func TestEntrypointPath(t *testing.T) {
	cfg := Default()
	want := "/opt/gate-apr-bot/telegram_bot.py"
	if got := cfg.EntrypointPath(); got != want {
		t.Errorf("EntrypointPath() = %q, want %q", got, want)
	}
}

func TestUnitTemplatePath(t *testing.T) {
	cfg := Default()

	root := cfg.UnitTemplatePath("/src/bot", VariantRoot)
	if root != "/src/bot/deploy/gate-apr-bot-root.service" {
		t.Errorf("root template path = %q", root)
	}
	user := cfg.UnitTemplatePath("/src/bot", VariantUser)
	if user != "/src/bot/deploy/gate-apr-bot-user.service" {
		t.Errorf("user template path = %q", user)
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Default()
	cfg.applyDerivedPaths()

	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate, got: %v", ValidationErrors(errs))
	}
}

func TestValidateCatchesBadValues(t *testing.T) {
	cfg := Default()
	cfg.applyDerivedPaths()
	cfg.Paths.InstallDir = ""
	cfg.Service.UnitName = "gate-apr-bot"
	cfg.Timeouts.StopGrace = 0
	cfg.Logging.Level = "verbose"

	errs := cfg.Validate()
	if len(errs) != 4 {
		t.Fatalf("Validate() returned %d errors, want 4: %v", len(errs), ValidationErrors(errs))
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"paths.install_dir", "service.unit_name", "timeouts.stop_grace", "logging.level"} {
		if !fields[want] {
			t.Errorf("expected validation error for %s", want)
		}
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		input   string
		want    Variant
		wantErr bool
	}{
		{"root", VariantRoot, false},
		{"1", VariantRoot, false},
		{"user", VariantUser, false},
		{"2", VariantUser, false},
		{"3", "", true},
		{"", "", true},
		{"admin", "", true},
	}

	for _, tt := range tests {
		got, err := ParseVariant(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseVariant(%q) expected error, got %v", tt.input, got)
			} else if !errors.Is(err, errors.ErrInvalidVariant) {
				t.Errorf("ParseVariant(%q) error = %v, want ErrInvalidVariant", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVariant(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVariant(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
