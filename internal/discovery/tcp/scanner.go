// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"print-bridge/internal/discovery"
	"print-bridge/internal/model"
)

// Config for TCP scanner
type Config struct {
	// Printers are host or host:port entries probed on every scan
	Printers    []string      `json:"printers"`
	DefaultPort int           `json:"default_port"`
	ConnTimeout time.Duration `json:"connection_timeout"`
}

// Scanner probes configured network printers
type Scanner struct {
	logger *zap.Logger
	config *Config
}

// NewScanner creates a new TCP scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.DefaultPort == 0 {
		config.DefaultPort = 9100
	}
	if config.ConnTimeout == 0 {
		config.ConnTimeout = 2 * time.Second
	}
	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable reports whether any printers are configured
func (s *Scanner) IsAvailable() bool {
	return len(s.config.Printers) > 0
}

// Scan probes every configured printer concurrently and returns the reachable ones
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	s.logger.Info("Starting TCP printer probe", zap.Int("targets", len(s.config.Printers)))

	results := make([]*discovery.DiscoveredDevice, len(s.config.Printers))
	var wg sync.WaitGroup

	for i, target := range s.config.Printers {
		host, port := s.split(target)
		wg.Add(1)
		go func(i int, host string, port int) {
			defer wg.Done()
			if s.probe(ctx, host, port) {
				results[i] = s.describe(host, port)
			}
		}(i, host, port)
	}
	wg.Wait()

	var discovered []*discovery.DiscoveredDevice
	for _, d := range results {
		if d != nil {
			discovered = append(discovered, d)
		}
	}

	s.logger.Info("TCP scan completed", zap.Int("devices_found", len(discovered)))
	return discovered, ctx.Err()
}

func (s *Scanner) split(target string) (string, int) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, s.config.DefaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, s.config.DefaultPort
	}
	return host, port
}

func (s *Scanner) probe(ctx context.Context, host string, port int) bool {
	dialer := &net.Dialer{Timeout: s.config.ConnTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		s.logger.Debug("Printer not reachable", zap.String("host", host), zap.Int("port", port), zap.Error(err))
		return false
	}
	_ = conn.Close()
	return true
}

func (s *Scanner) describe(host string, port int) *discovery.DiscoveredDevice {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	return &discovery.DiscoveredDevice{
		ID:             "tcp:" + address,
		Name:           "Network printer " + address,
		Address:        address,
		Paired:         true,
		Known:          true,
		ConnectionType: model.ConnectionTypeTCP,
		ConnectionInfo: model.JSONObject{"host": host, "port": port},
	}
}
