package mqtt

import (
	"context"
	"crypto/sha1" //nolint:gosec // Matches the pinned fingerprint format
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
)

const testFingerprint = "B3 B7 C3 0D 9D 32 E6 A2 8A FC FD BA 11 BB 05 5E E1 D9 9E F7"

// testConfig returns an MQTT configuration pointing at a local plain-TCP broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
			TLS:  false,
		},
		QoS:       0,
		KeepAlive: 15 * time.Second,
	}
}

func testCredentials() Credentials {
	return Credentials{
		ClientID: "d:org1:sensor:dev1",
		Username: TokenAuthUsername,
		Password: "secret",
	}
}

// mockLogger records log calls.
type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", topics.Status(), "iot-2/evt/status/fmt/json"},
		{"info", topics.Info(), "iot-2/evt/info/fmt/json"},
		{"command", topics.Command(), "iot-2/cmd/+/fmt/+"},
		{"response", topics.Response(), "iotdm-1/response"},
		{"update", topics.Update(), "iotdm-1/device/update"},
		{"reboot", topics.Reboot(), "iotdm-1/mgmt/initiate/device/reboot"},
		{"factory reset", topics.FactoryReset(), "iotdm-1/mgmt/initiate/device/factory_reset"},
		{"manage", topics.Manage(), "iotdevice-1/mgmt/manage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSubscriptionsOrder(t *testing.T) {
	want := []string{
		"iotdm-1/response",
		"iotdm-1/mgmt/initiate/device/reboot",
		"iotdm-1/mgmt/initiate/device/factory_reset",
		"iotdm-1/device/update",
		"iot-2/cmd/+/fmt/+",
	}

	got := Topics{}.Subscriptions()
	if len(got) != len(want) {
		t.Fatalf("Subscriptions() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Subscriptions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"iot-2/cmd/upgrade/fmt/json", "upgrade"},
		{"iot-2/cmd/config/fmt/text", "config"},
		{"iot-2/cmd/", ""},
		{"iotdm-1/response", ""},
	}

	for _, tt := range tests {
		if got := CommandName(tt.topic); got != tt.want {
			t.Errorf("CommandName(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

// =============================================================================
// Fingerprint Tests
// =============================================================================

func TestParseFingerprint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"space separated", testFingerprint, 20, false},
		{"colon separated", "B3:B7:C3:0D:9D:32:E6:A2:8A:FC:FD:BA:11:BB:05:5E:E1:D9:9E:F7", 20, false},
		{"packed lower case", "b3b7c30d9d32e6a28afcfdba11bb055ee1d99ef7", 20, false},
		{"empty disables pinning", "  ", 0, false},
		{"not hex", "ZZ B7", 0, true},
		{"too short", "B3 B7 C3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := ParseFingerprint(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFingerprint) {
					t.Errorf("ParseFingerprint() error = %v, want ErrInvalidFingerprint", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFingerprint() error = %v", err)
			}
			if len(fp) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(fp), tt.wantLen)
			}
		})
	}
}

func TestFormatFingerprint(t *testing.T) {
	fp, err := ParseFingerprint(testFingerprint)
	if err != nil {
		t.Fatalf("ParseFingerprint() error = %v", err)
	}
	if got := FormatFingerprint(fp); got != testFingerprint {
		t.Errorf("FormatFingerprint() = %q, want %q", got, testFingerprint)
	}
}

func TestLoadFingerprint(t *testing.T) {
	dir := t.TempDir()

	present := filepath.Join(dir, "fingerprint.txt")
	if err := os.WriteFile(present, []byte("AA BB\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"file content trimmed", present, "AA BB"},
		{"missing file", filepath.Join(dir, "nope.txt"), "fallback"},
		{"empty file", empty, "fallback"},
		{"no path", "", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LoadFingerprint(tt.path, "fallback"); got != tt.want {
				t.Errorf("LoadFingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVerifyFingerprint(t *testing.T) {
	leaf := []byte("not really DER but hashed all the same")
	sum := sha1.Sum(leaf) //nolint:gosec // Test mirrors production digest

	if err := verifyFingerprint([][]byte{leaf}, sum[:]); err != nil {
		t.Errorf("verifyFingerprint() matching error = %v", err)
	}

	other := sha1.Sum([]byte("someone else")) //nolint:gosec // Test mirrors production digest
	if err := verifyFingerprint([][]byte{leaf}, other[:]); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("verifyFingerprint() mismatch error = %v, want ErrFingerprintMismatch", err)
	}

	if err := verifyFingerprint(nil, sum[:]); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("verifyFingerprint() no certs error = %v, want ErrFingerprintMismatch", err)
	}
}

func TestBuildTLSConfig(t *testing.T) {
	t.Run("no fingerprint uses trust store", func(t *testing.T) {
		tlsCfg := buildTLSConfig("broker.example", nil)
		if tlsCfg.InsecureSkipVerify {
			t.Error("InsecureSkipVerify = true without a pinned fingerprint")
		}
		if tlsCfg.VerifyPeerCertificate != nil {
			t.Error("VerifyPeerCertificate set without a pinned fingerprint")
		}
		if tlsCfg.ServerName != "broker.example" {
			t.Errorf("ServerName = %q", tlsCfg.ServerName)
		}
	})

	t.Run("fingerprint pins leaf", func(t *testing.T) {
		fp, _ := ParseFingerprint(testFingerprint)
		tlsCfg := buildTLSConfig("broker.example", fp)
		if tlsCfg.VerifyPeerCertificate == nil {
			t.Fatal("VerifyPeerCertificate not set")
		}
		if err := tlsCfg.VerifyPeerCertificate([][]byte{[]byte("x")}, nil); !errors.Is(err, ErrFingerprintMismatch) {
			t.Errorf("VerifyPeerCertificate() error = %v, want ErrFingerprintMismatch", err)
		}
	})
}

// =============================================================================
// Options Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, "org1.messaging.internetofthings.ibmcloud.com", testCredentials(), nil)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers len = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "ssl://org1.messaging.internetofthings.ibmcloud.com:8883" {
		t.Errorf("broker URL = %q", got)
	}
	if opts.ClientID != "d:org1:sensor:dev1" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != TokenAuthUsername || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, reconnection belongs to the caller")
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set with TLS enabled")
	}
}

// =============================================================================
// Client Tests (no broker required)
// =============================================================================

func TestNew(t *testing.T) {
	t.Run("invalid fingerprint with TLS", func(t *testing.T) {
		cfg := testConfig()
		cfg.Broker.TLS = true
		cfg.Fingerprint = "not hex"

		if _, err := New(cfg, "localhost", testCredentials()); !errors.Is(err, ErrInvalidFingerprint) {
			t.Errorf("New() error = %v, want ErrInvalidFingerprint", err)
		}
	})

	t.Run("fingerprint ignored without TLS", func(t *testing.T) {
		cfg := testConfig()
		cfg.Fingerprint = "not hex"

		c, err := New(cfg, "localhost", testCredentials())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.IsConnected() {
			t.Error("IsConnected() = true before Connect()")
		}
	})
}

func TestOperationsWhileDisconnected(t *testing.T) {
	c, err := New(testConfig(), "localhost", testCredentials())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"publish empty topic", func() error { return c.Publish("", nil, 0, false) }, ErrInvalidTopic},
		{"publish invalid qos", func() error { return c.Publish("t", nil, 3, false) }, ErrInvalidQoS},
		{"publish too large", func() error { return c.Publish("t", make([]byte, maxPayloadSize+1), 0, false) }, ErrPublishFailed},
		{"publish disconnected", func() error { return c.Publish("t", []byte("{}"), 0, false) }, ErrNotConnected},
		{"subscribe empty topic", func() error { return c.Subscribe("", 0, noop) }, ErrInvalidTopic},
		{"subscribe invalid qos", func() error { return c.Subscribe("t", 3, noop) }, ErrInvalidQoS},
		{"subscribe nil handler", func() error { return c.Subscribe("t", 0, nil) }, ErrSubscribeFailed},
		{"subscribe disconnected", func() error { return c.Subscribe("t", 0, noop) }, ErrNotConnected},
		{"health check", func() error { return c.HealthCheck(context.Background()) }, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishOversizeNamesTopic(t *testing.T) {
	c, err := New(testConfig(), "localhost", testCredentials())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Publish("iot-2/evt/status/fmt/json", make([]byte, maxPayloadSize+1), 0, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("Publish() error = %v, want ErrPublishFailed", err)
	}
	if !strings.Contains(err.Error(), "iot-2/evt/status/fmt/json") {
		t.Errorf("error %q does not name the topic", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	c, err := New(cfg, "127.0.0.1", testCredentials())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Connect(); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after failed Connect()")
	}
}

func TestHandlerWrapping(t *testing.T) {
	logger := &mockLogger{}
	c := &Client{}
	c.SetLogger(logger)

	c.deliver(func(string, []byte) error { panic("boom") }, "t", nil)
	c.deliver(func(string, []byte) error { return errors.New("bad payload") }, "t", nil)

	var got []byte
	c.deliver(func(_ string, p []byte) error { got = p; return nil }, "t", []byte("ok"))

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Errorf("panic logs = %d, want 1", len(logger.errors))
	}
	if len(logger.warns) != 1 {
		t.Errorf("error logs = %d, want 1", len(logger.warns))
	}
	if string(got) != "ok" {
		t.Errorf("payload = %q, want ok", got)
	}
}

func TestHandleDisconnect(t *testing.T) {
	c := &Client{connected: true}
	var gotErr error
	c.SetOnDisconnect(func(err error) { gotErr = err })

	lost := errors.New("EOF")
	c.handleDisconnect(lost)

	if c.IsConnected() {
		t.Error("IsConnected() = true after connection lost")
	}
	if !errors.Is(gotErr, lost) {
		t.Errorf("callback error = %v, want %v", gotErr, lost)
	}
}
