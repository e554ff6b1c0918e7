package testutil

import (
	"context"
	"sync"
	"time"

	"signalgate/internal/ledger"
	"signalgate/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockLedgerClient implements ledger.Client with scripted responses and call
// counters, so tests can assert that cheap rejections never hit the ledger.
type MockLedgerClient struct {
	mu sync.Mutex

	Transactions map[string]*ledger.TransactionResult
	Balances     map[string]uint64 // key: owner + ":" + mint
	TxErr        error
	BalanceErr   error

	GetTransactionCalls int
	GetBalanceCalls     int
}

func NewMockLedgerClient() *MockLedgerClient {
	return &MockLedgerClient{
		Transactions: make(map[string]*ledger.TransactionResult),
		Balances:     make(map[string]uint64),
	}
}

func (m *MockLedgerClient) GetTransaction(_ context.Context, proofID string) (*ledger.TransactionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetTransactionCalls++
	if m.TxErr != nil {
		return nil, m.TxErr
	}
	tx, ok := m.Transactions[proofID]
	if !ok {
		return nil, ledger.ErrTxNotFound
	}
	return tx, nil
}

func (m *MockLedgerClient) GetTokenAccountBalance(_ context.Context, owner, mint string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetBalanceCalls++
	if m.BalanceErr != nil {
		return 0, m.BalanceErr
	}
	return m.Balances[owner+":"+mint], nil
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockMetrics implements providers.MetricsProviderInterface and counts
// unlock outcomes.
type MockMetrics struct {
	mu       sync.Mutex
	Outcomes map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Outcomes: make(map[string]int)}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncUnlockOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[outcome]++
}
func (m *MockMetrics) ObserveVerificationDuration(_ time.Duration) {}
func (m *MockMetrics) IncVerifying()                               {}
func (m *MockMetrics) DecVerifying()                               {}
func (m *MockMetrics) IncCacheHits()                               {}
func (m *MockMetrics) IncCacheMisses()                             {}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration)  {}

func (m *MockMetrics) Outcome(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Outcomes[name]
}
