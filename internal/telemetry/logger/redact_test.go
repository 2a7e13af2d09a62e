package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive_Keys(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		redacted bool
	}{
		{"secret", "hunter2-hunter2", true},
		{"security.salt", "pepper-salt", true},
		{"passphrase", "open sesame", true},
		{"hmac_key", "abcdef", true},
		{"slot_id", "42", false},
		{"path", "/saves/42/GameSave1.dat", false},
		{"secret", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			l, buf := newBufferLogger(t, "info", "json")
			l.Info("msg", tt.key, tt.value)

			got := decodeEntry(t, buf)[tt.key]
			if tt.redacted && got != redactedValue {
				t.Errorf("%s = %v, want redacted", tt.key, got)
			}
			if !tt.redacted && got != tt.value {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestRedactSensitive_Bytes(t *testing.T) {
	a := redactSensitive(slog.Any("key_material", []byte{1, 2, 3}))
	if a.Value.String() != redactedValue {
		t.Errorf("bytes value = %v, want redacted", a.Value)
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.Info("config", slog.Group("security", slog.String("secret", "s3cr3t-value"), slog.String("kdf", "pbkdf2")))

	group, ok := decodeEntry(t, buf)["security"].(map[string]any)
	if !ok {
		t.Fatal("expected security group")
	}
	if group["secret"] != redactedValue {
		t.Errorf("secret = %v, want redacted", group["secret"])
	}
	if group["kdf"] != "pbkdf2" {
		t.Errorf("kdf = %v, want pbkdf2", group["kdf"])
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "***"},
		{"a-much-longer-secret", "a-m...ret"},
	}
	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if !IsSensitiveKey("SECURITY_SECRET") {
		t.Error("SECURITY_SECRET should be sensitive")
	}
	if IsSensitiveKey("scene_name") {
		t.Error("scene_name should not be sensitive")
	}
}
