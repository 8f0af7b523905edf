package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gatewatch/botctl/internal/errors"
)

func TestCreateWritesExactContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	err := Create(path, Values{Token: "ABC123", AdminIDs: "999"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read env file: %v", err)
	}

	want := "TELEGRAM_BOT_TOKEN=ABC123\nTELEGRAM_ADMIN_CHAT_IDS=999\nLOG_LEVEL=INFO\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", string(data), want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestCreateNeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	original := "TELEGRAM_BOT_TOKEN=keepme\n"
	if err := os.WriteFile(path, []byte(original), 0600); err != nil {
		t.Fatal(err)
	}

	err := Create(path, Values{Token: "new-token", AdminIDs: "1"})
	if !errors.Is(err, errors.ErrEnvFileExists) {
		t.Fatalf("Create() on existing file: got %v, want ErrEnvFileExists", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("existing file was modified: %q", string(data))
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := Create(path, Values{Token: "tok", AdminIDs: "1,2", LogLevel: "DEBUG"}); err != nil {
		t.Fatal(err)
	}

	env, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if env[KeyToken] != "tok" {
		t.Errorf("%s = %q, want %q", KeyToken, env[KeyToken], "tok")
	}
	if env[KeyAdminIDs] != "1,2" {
		t.Errorf("%s = %q, want %q", KeyAdminIDs, env[KeyAdminIDs], "1,2")
	}
	if env[KeyLogLevel] != "DEBUG" {
		t.Errorf("%s = %q, want %q", KeyLogLevel, env[KeyLogLevel], "DEBUG")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if !errors.Is(err, errors.ErrEnvFileMissing) {
		t.Errorf("Load() on missing file: got %v, want ErrEnvFileMissing", err)
	}
}

func TestMissingKeys(t *testing.T) {
	env := map[string]string{KeyToken: "tok"}
	missing := MissingKeys(env)
	if len(missing) != 2 {
		t.Fatalf("MissingKeys() = %v, want 2 entries", missing)
	}
	if missing[0] != KeyLogLevel || missing[1] != KeyAdminIDs {
		t.Errorf("MissingKeys() = %v, want sorted [%s %s]", missing, KeyLogLevel, KeyAdminIDs)
	}
}

func TestPrompt(t *testing.T) {
	input := strings.NewReader("ABC123\n999\n\n")
	var out strings.Builder

	v, err := Prompt(input, &out)
	if err != nil {
		t.Fatalf("Prompt() error: %v", err)
	}
	if v.Token != "ABC123" {
		t.Errorf("Token = %q, want %q", v.Token, "ABC123")
	}
	if v.AdminIDs != "999" {
		t.Errorf("AdminIDs = %q, want %q", v.AdminIDs, "999")
	}
	if v.LogLevel != "" {
		t.Errorf("LogLevel = %q, want empty (defaulted at render time)", v.LogLevel)
	}
	if !strings.Contains(out.String(), "Telegram bot token") {
		t.Errorf("prompt output missing token question: %q", out.String())
	}
}
