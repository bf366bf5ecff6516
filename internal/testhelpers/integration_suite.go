package testhelpers

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dbehnke/p25framer/pkg/config"
	"github.com/dbehnke/p25framer/pkg/framer"
	"github.com/dbehnke/p25framer/pkg/logger"
)

// IntegrationSuite provides infrastructure for integration tests
// exercising a Framer end to end.
type IntegrationSuite struct {
	T      *testing.T
	Logger *logger.Logger
	Ctx    context.Context
	Cancel context.CancelFunc
	Sink   *RecordingSink
	Framer *framer.Framer
}

// NewIntegrationSuite creates a Framer wired to a RecordingSink and a
// bounded context, ready to be fed a dibit stream.
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{Level: "debug", Format: "text"})
	sink := NewRecordingSink()

	f := framer.New(framer.DefaultConfig(), log.WithComponent("framer"))
	f.SetListener(sink)

	return &IntegrationSuite{
		T:      t,
		Logger: log,
		Ctx:    ctx,
		Cancel: cancel,
		Sink:   sink,
		Framer: f,
	}
}

// GetFreePort returns an OS-assigned free TCP port for binding a test
// server.
func (s *IntegrationSuite) GetFreePort() int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		s.T.Fatal(err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.T.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// Cleanup disposes the Framer and cancels the suite's context.
func (s *IntegrationSuite) Cleanup() {
	s.Framer.Dispose()
	s.Cancel()
}

// WaitFor polls condition until it returns true or timeout elapses.
func (s *IntegrationSuite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually fails the test if condition never becomes true
// within timeout.
func (s *IntegrationSuite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// CreateDefaultConfig creates a default test configuration.
func CreateDefaultConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Name: "Test Server",
		},
		Input: config.InputConfig{
			Source: "udp",
			Addr:   "127.0.0.1:0",
		},
		Pool: config.PoolConfig{
			Size: 2,
		},
		Monitor: config.MonitorConfig{
			Enabled: false,
		},
		MQTT: config.MQTTConfig{
			Enabled: false,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
	}
}
