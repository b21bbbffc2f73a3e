package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"habitbot/pkg/logx"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  rate_per_sec: 2
  poll_timeout: 10s
logging:
  level: debug
  console: true
storage:
  path: /var/lib/habitbot/bot.db
  busy_timeout: 5s
scheduler:
  enabled: true
  workers: 4
  default_timeout: 30s
  timezone: Europe/Moscow
`)

	m := NewManager(path, logx.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.RatePerSec != 2 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Path != "/var/lib/habitbot/bot.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Workers != 4 || cfg.Scheduler.Timezone != "Europe/Moscow" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json",
		`{"telegram":{"token":"t"},"storage":{"path":"bot.db"}}`)

	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "t" || cfg.Storage.Path != "bot.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
storage:
  path: bot.db
  flush_interval: 5s
`)

	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("unknown field must be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing storage path",
			body: `{"telegram":{"token":"t"}}`,
			want: "storage.path",
		},
		{
			name: "bad busy timeout",
			body: `{"storage":{"path":"bot.db","busy_timeout":"soon"}}`,
			want: "storage.busy_timeout",
		},
		{
			name: "bad default timeout",
			body: `{"storage":{"path":"bot.db"},"scheduler":{"default_timeout":"never"}}`,
			want: "scheduler.default_timeout",
		},
		{
			name: "negative workers",
			body: `{"storage":{"path":"bot.db"},"scheduler":{"workers":-1}}`,
			want: "scheduler.workers",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, "config.json", tc.body)
			_, err := NewManager(path, logx.Nop()).Parse()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	const def = 30 * time.Second

	got, err := ParseDurationOrDefault("scheduler.default_timeout", "", def)
	if err != nil || got != def {
		t.Fatalf("empty = %v, %v", got, err)
	}
	got, err = ParseDurationOrDefault("scheduler.default_timeout", "250ms", def)
	if err != nil || got != 250*time.Millisecond {
		t.Fatalf("250ms = %v, %v", got, err)
	}
	if _, err = ParseDurationOrDefault("scheduler.default_timeout", "junk", def); err == nil {
		t.Fatal("junk must be rejected")
	}
	if _, err = ParseDurationField("telegram.poll_timeout", "-1s"); err == nil {
		t.Fatal("negative duration must be rejected")
	}
}
