package modtcp

import "sync/atomic"

// ExchangeMetrics contains atomic metrics for a client.
// Metrics can be used as the value of a prometheus CounterFunc.
type ExchangeMetrics struct {
	// CommandSendCount indicates the number of command frames sent.
	CommandSendCount atomic.Uint64
	// AckCount indicates the number of acknowledged set-style commands.
	AckCount atomic.Uint64
	// ReplyCount indicates the number of successful query replies.
	ReplyCount atomic.Uint64
	// TimeoutCount indicates the number of response timeouts, empty reads
	// included.
	TimeoutCount atomic.Uint64
	// ProtocolErrCount indicates the number of protocol violations in
	// responses.
	ProtocolErrCount atomic.Uint64

	// ConnectCount indicates the number of connections established.
	ConnectCount atomic.Uint64
	// DisconnectCount indicates the number of connections torn down,
	// error-path disconnects included.
	DisconnectCount atomic.Uint64
}

func (m *ExchangeMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *ExchangeMetrics) incAckCount() {
	m.AckCount.Add(1)
}

func (m *ExchangeMetrics) incReplyCount() {
	m.ReplyCount.Add(1)
}

func (m *ExchangeMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *ExchangeMetrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *ExchangeMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}

func (m *ExchangeMetrics) incDisconnectCount() {
	m.DisconnectCount.Add(1)
}
