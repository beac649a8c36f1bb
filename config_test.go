package sessionauth

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config must not validate without signing keys")
	}
	if validTestConfig().Validate() != nil {
		t.Fatal("config with keys should validate")
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero access ttl",
			mutate:  func(c *Config) { c.JWT.AccessTTL = 0 },
			wantErr: "AccessTTL",
		},
		{
			name:    "access ttl exceeds refresh ttl",
			mutate:  func(c *Config) { c.JWT.AccessTTL = c.Session.RefreshTTL + time.Second },
			wantErr: "AccessTTL",
		},
		{
			name:    "unknown signing method",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantErr: "SigningMethod",
		},
		{
			name:    "missing private key",
			mutate:  func(c *Config) { c.JWT.PrivateKey = nil },
			wantErr: "PrivateKey",
		},
		{
			name:    "empty store prefix",
			mutate:  func(c *Config) { c.Session.StorePrefix = "" },
			wantErr: "StorePrefix",
		},
		{
			name:    "non-positive lineage walk",
			mutate:  func(c *Config) { c.Session.MaxLineageWalk = 0 },
			wantErr: "MaxLineageWalk",
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantErr: "BufferSize",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestCloneConfigIsolatesKeyMaterial(t *testing.T) {
	original := validTestConfig()
	original.JWT.PublicKey = []byte("public-key")
	original.JWT.VerifyKeys = map[string][]byte{
		"k1": []byte("verify-key-1"),
	}

	clone := cloneConfig(original)
	clone.JWT.PrivateKey[0] = 'X'
	clone.JWT.PublicKey[0] = 'X'
	clone.JWT.VerifyKeys["k1"][0] = 'X'
	clone.JWT.VerifyKeys["k2"] = []byte("added")

	if original.JWT.PrivateKey[0] == 'X' {
		t.Fatal("private key shared with clone")
	}
	if original.JWT.PublicKey[0] == 'X' {
		t.Fatal("public key shared with clone")
	}
	if !bytes.Equal(original.JWT.VerifyKeys["k1"], []byte("verify-key-1")) {
		t.Fatal("verify key shared with clone")
	}
	if _, ok := original.JWT.VerifyKeys["k2"]; ok {
		t.Fatal("verify key map shared with clone")
	}
}
