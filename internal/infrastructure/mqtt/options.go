package mqtt

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // Fingerprint format is fixed by the platform
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for a connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// fingerprintLen is the length of a SHA-1 digest.
	fingerprintLen = sha1.Size

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// TokenAuthUsername is the fixed username for device-token authentication.
const TokenAuthUsername = "use-token-auth"

// Credentials identify the device to the broker.
type Credentials struct {
	ClientID string
	Username string
	Password string
}

// buildClientOptions creates paho MQTT options for a device session.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID and token credentials
//   - No automatic reconnect (the caller owns reconnection)
//   - TLS with optional fingerprint pinning
func buildClientOptions(cfg config.MQTTConfig, host string, creds Credentials, fingerprint []byte) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Broker.Port))

	opts.SetClientID(creds.ClientID)
	if creds.Username != "" {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(cfg.KeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(buildTLSConfig(host, fingerprint))
	}

	return opts
}

// buildTLSConfig returns a TLS configuration for the broker connection.
// With a fingerprint the broker is trusted only if its leaf certificate
// hashes to it; chain verification is skipped.
// Without one the system trust store is used.
func buildTLSConfig(host string, fingerprint []byte) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion: tlsMinVersion,
		ServerName: host,
	}
	if len(fingerprint) == 0 {
		return tlsConfig
	}

	tlsConfig.InsecureSkipVerify = true //nolint:gosec // Replaced by VerifyPeerCertificate below
	tlsConfig.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		return verifyFingerprint(rawCerts, fingerprint)
	}
	return tlsConfig
}

// verifyFingerprint checks the leaf certificate against the pinned SHA-1 digest.
func verifyFingerprint(rawCerts [][]byte, fingerprint []byte) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no certificate presented", ErrFingerprintMismatch)
	}
	sum := sha1.Sum(rawCerts[0]) //nolint:gosec // Fingerprint format is fixed by the platform
	if !bytes.Equal(sum[:], fingerprint) {
		return fmt.Errorf("%w: got %s", ErrFingerprintMismatch, FormatFingerprint(sum[:]))
	}
	return nil
}

// ParseFingerprint decodes a SHA-1 fingerprint written as hex, optionally
// separated by spaces or colons ("B3 B7 C3 ..." or "B3:B7:C3:...").
// An empty string yields a nil fingerprint (pinning disabled).
func ParseFingerprint(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return nil, nil
	}

	fp, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}
	if len(fp) != fingerprintLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidFingerprint, len(fp), fingerprintLen)
	}
	return fp, nil
}

// FormatFingerprint renders a fingerprint as space-separated upper-case hex.
func FormatFingerprint(fp []byte) string {
	parts := make([]string, len(fp))
	for i, b := range fp {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// LoadFingerprint returns the trimmed content of path, or fallback if the
// file is missing, unreadable or empty. It is read once at start-up.
func LoadFingerprint(path, fallback string) string {
	if path == "" {
		return fallback
	}
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted config
	if err != nil {
		return fallback
	}
	if fp := strings.TrimSpace(string(data)); fp != "" {
		return fp
	}
	return fallback
}
