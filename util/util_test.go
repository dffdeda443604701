package util

import (
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"
)

func TestPkToHash(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple string",
			input:    "test",
			expected: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := PkToHash(tt.input); result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestGetNameAndVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Fatal("Version should not be empty")
	}
	if !strings.HasPrefix(GetNameAndVersion(), "inkblock / ") {
		t.Errorf("Unexpected name and version '%s'", GetNameAndVersion())
	}
}

func TestNanosToTime(t *testing.T) {
	tests := []struct {
		name   string
		nanos  int64
		millis int64
	}{
		{name: "epoch", nanos: 0, millis: 0},
		{name: "sub-millisecond truncates", nanos: 1_999_999, millis: 1},
		{name: "current time", nanos: 1_760_870_000_123_456_789, millis: 1_760_870_000_123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NanosToTime(tt.nanos)
			if got.UnixMilli() != tt.millis {
				t.Errorf("Expected %d ms, got %d", tt.millis, got.UnixMilli())
			}
			if got.Location() != time.Local {
				t.Errorf("Expected local time, got %v", got.Location())
			}
		})
	}
}

func TestNanosToTimeMatchesNow(t *testing.T) {
	now := time.Now()
	got := NanosToTime(now.UnixNano())
	if !got.Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("Expected %v, got %v", now.Truncate(time.Millisecond), got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	ns := int64(1_700_000_000_000_000_000)
	expected := time.UnixMilli(1_700_000_000_000).Local().Format(DateTimeFormat())
	if got := FormatTimestamp(ns); got != expected {
		t.Errorf("Expected '%s', got '%s'", expected, got)
	}
}

func TestGeneratePemKeypair(t *testing.T) {
	pair, err := GeneratePemKeypair(1024)
	if err != nil {
		t.Fatalf("GeneratePemKeypair failed: %v", err)
	}

	block, _ := pem.Decode([]byte(pair.Private))
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		t.Fatal("Private key is not a PKCS#1 PEM block")
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
		t.Errorf("Private key does not parse: %v", err)
	}

	block, _ = pem.Decode([]byte(pair.Public))
	if block == nil || block.Type != "PUBLIC KEY" {
		t.Fatal("Public key is not a PKIX PEM block")
	}
	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		t.Errorf("Public key does not parse: %v", err)
	}
}

func TestTerminalLink(t *testing.T) {
	link := TerminalLink("https://identity.ic0.app", "login")
	if !strings.Contains(link, "\033]8;;https://identity.ic0.app\033\\login") {
		t.Errorf("Expected OSC 8 hyperlink, got %q", link)
	}
}
