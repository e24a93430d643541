package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
server:
  listen: ":9090"
jit:
  enabled: true
  default_roles: [ROLE_USER]
  sync_attributes_on_login: true
  auto_deactivate: true
  inactive_days: 60
  sources: [LDAP, OIDC]
  rule_refresh_interval: 5m
mfa:
  otp_length: 8
  otp_validity_seconds: 120
  sms_enabled: true
audit:
  enabled: true
  type: file
  path: /var/log/securecas/audit.jsonl
store:
  type: memory
challenge:
  type: redis
  redis:
    addr: localhost:6379
rules:
  - name: internal-staff
    enabled: true
    order: 1
    source: LDAP
    condition: EMAIL_DOMAIN
    value: corp.example.com
    roles: [ROLE_INTERNAL]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("Server.Listen = %q", cfg.Server.Listen)
	}
	if !cfg.JIT.AutoDeactivate || cfg.JIT.InactiveDays != 60 {
		t.Errorf("JIT sweep config = %+v", cfg.JIT)
	}
	if cfg.JIT.RuleRefreshInterval != 5*time.Minute {
		t.Errorf("RuleRefreshInterval = %v, want 5m", cfg.JIT.RuleRefreshInterval)
	}
	if cfg.MFA.OTPLength != 8 || cfg.MFA.Validity() != 2*time.Minute {
		t.Errorf("MFA config = %+v", cfg.MFA)
	}
	if cfg.Challenge.Type != "redis" || cfg.Challenge.Redis.Addr != "localhost:6379" {
		t.Errorf("Challenge config = %+v", cfg.Challenge)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "internal-staff" {
		t.Fatalf("Rules = %+v", cfg.Rules)
	}
	if !cfg.Rules[0].Roles.Has("ROLE_INTERNAL") {
		t.Errorf("rule roles = %v", cfg.Rules[0].Roles.Values())
	}

	enabled := cfg.EnabledSources()
	if len(enabled) != 2 || !enabled["LDAP"] || !enabled["OIDC"] {
		t.Errorf("EnabledSources() = %v", enabled)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  listen: \":8443\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MFA.OTPLength != 6 || cfg.MFA.OTPValiditySeconds != 300 {
		t.Errorf("MFA defaults = %+v", cfg.MFA)
	}
	if got := cfg.JIT.DefaultRoles; len(got) != 1 || got[0] != "ROLE_USER" {
		t.Errorf("DefaultRoles = %v", got)
	}
	if cfg.EnabledSources() != nil {
		t.Errorf("EnabledSources() = %v, want nil for all-sources", cfg.EnabledSources())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load() expected error for a missing file")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantMsg string
	}{
		{
			name:    "Empty Listen",
			mutate:  func(cfg *Config) { cfg.Server.Listen = "" },
			wantMsg: "server.listen",
		},
		{
			name:    "No Default Roles",
			mutate:  func(cfg *Config) { cfg.JIT.DefaultRoles = nil },
			wantMsg: "jit.default_roles",
		},
		{
			name:    "Unknown Source",
			mutate:  func(cfg *Config) { cfg.JIT.Sources = []string{"KERBEROS"} },
			wantMsg: "jit.sources",
		},
		{
			name: "Sweep Without Threshold",
			mutate: func(cfg *Config) {
				cfg.JIT.AutoDeactivate = true
				cfg.JIT.InactiveDays = 0
			},
			wantMsg: "inactive_days",
		},
		{
			name:    "OTP Too Short",
			mutate:  func(cfg *Config) { cfg.MFA.OTPLength = 2 },
			wantMsg: "otp_length",
		},
		{
			name: "File Auditor Without Path",
			mutate: func(cfg *Config) {
				cfg.Audit.Type = "file"
				cfg.Audit.Path = ""
			},
			wantMsg: "audit.path",
		},
		{
			name:    "Unknown Store",
			mutate:  func(cfg *Config) { cfg.Store.Type = "dynamo" },
			wantMsg: "unknown store type",
		},
		{
			name: "Postgres Without DSN",
			mutate: func(cfg *Config) {
				cfg.Store.Type = "postgres"
				cfg.Store.DSN = ""
			},
			wantMsg: "store.dsn",
		},
		{
			name: "Redis Without Addr",
			mutate: func(cfg *Config) {
				cfg.Challenge.Type = "redis"
			},
			wantMsg: "challenge.redis.addr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_RejectsBadRule(t *testing.T) {
	badRule := `
rules:
  - name: broken
    enabled: true
    order: 1
    source: LDAP
    condition: ATTRIBUTE_MATCHES
    attribute: mail
    value: "("
    roles: [ROLE_X]
`
	if _, err := Load(writeConfig(t, badRule)); err == nil {
		t.Fatal("Load() expected error for a rule with an unparsable pattern")
	}
}

func TestValidate_RejectsDuplicateRuleNames(t *testing.T) {
	dupes := `
rules:
  - name: twin
    enabled: true
    order: 1
    source: LDAP
    condition: ALWAYS
    roles: [ROLE_A]
  - name: twin
    enabled: true
    order: 2
    source: LDAP
    condition: ALWAYS
    roles: [ROLE_B]
`
	if _, err := Load(writeConfig(t, dupes)); err == nil {
		t.Fatal("Load() expected error for duplicate rule names")
	}
}
