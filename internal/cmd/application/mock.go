package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/pkg/store"
	"github.com/agentstation/cwemap/pkg/version"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	ClientFunc          func(opts ...cwemap.Option) (Client, error)
	StoreFunc           func() (*store.Store, error)
	VersionProviderFunc func() version.Provider
	WriteMetricsFunc    func() error
	LoggerFunc          func() *zerolog.Logger
	OutputFormatFunc    func() string
	VersionFunc         func() string
	CommitFunc          func() string
	DateFunc            func() string
	BuiltByFunc         func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client(opts ...cwemap.Option) (Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(opts...)
	}
	return nil, nil
}

// Store returns a store using the mock function, or the store of Client.
func (m *Mock) Store() (*store.Store, error) {
	if m.StoreFunc != nil {
		return m.StoreFunc()
	}
	if m.ClientFunc != nil {
		c, err := m.ClientFunc()
		if err != nil {
			return nil, err
		}
		return c.Store()
	}
	return nil, nil
}

// VersionProvider returns a provider using the mock function or nil.
func (m *Mock) VersionProvider() version.Provider {
	if m.VersionProviderFunc != nil {
		return m.VersionProviderFunc()
	}
	return nil
}

// WriteMetrics calls the mock function if set.
func (m *Mock) WriteMetrics() error {
	if m.WriteMetricsFunc != nil {
		return m.WriteMetricsFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
