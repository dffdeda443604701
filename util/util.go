package util

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
	"log"
	"strings"
	"time"
)

//go:embed version.txt
var embeddedVersion string

const SessionKeyBits = 2048

type RsaKeyPair struct {
	Private string
	Public  string
}

func LogPublicKey(s ssh.Session) {
	log.Printf("%s@%s opened a new ssh-session..", s.User(), s.RemoteAddr())
}

func PublicKeyToString(s ssh.PublicKey) string {
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(s)))
}

func PkToHash(pk string) string {
	h := sha256.New()
	h.Write([]byte(pk))
	return hex.EncodeToString(h.Sum(nil))
}

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05 MST"
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}

// NanosToTime converts a ledger timestamp (nanoseconds since the epoch) to a
// local time with millisecond resolution.
func NanosToTime(ns int64) time.Time {
	return time.UnixMilli(ns / 1_000_000).Local()
}

// FormatTimestamp renders a ledger timestamp for display.
func FormatTimestamp(ns int64) string {
	return NanosToTime(ns).Format(DateTimeFormat())
}

// GeneratePemKeypair creates a fresh RSA keypair. The private key is PKCS#1,
// the public key PKIX, both PEM encoded.
func GeneratePemKeypair(bitSize int) (*RsaKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, bitSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	pubDer, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	keyPEM := pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		},
	)

	pubPEM := pem.EncodeToMemory(
		&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: pubDer,
		},
	)

	return &RsaKeyPair{Private: string(keyPEM), Public: string(pubPEM)}, nil
}

// TerminalLink wraps text in an OSC 8 hyperlink so terminals that support it
// make the text clickable. The URL is printed as well for those that don't.
func TerminalLink(url, text string) string {
	// \033[39;24m resets only foreground and underline, not background
	return fmt.Sprintf("\033[38;2;0;255;127;4m\033]8;;%s\033\\%s\033]8;;\033\\\033[39;24m", url, text)
}
