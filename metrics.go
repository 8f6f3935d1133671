package dbus

import "github.com/prometheus/client_golang/prometheus"

// ConnMetrics is a prometheus.Collector exposing per-Connection
// counters, modeled directly on runZeroInc/conniver's
// TCPInfoCollector (pkg/exporter/exporter.go): a handful of
// *prometheus.Desc paired with a supplier, collected on demand rather
// than pushed.
type ConnMetrics struct {
	messagesSent     uint64
	messagesReceived uint64
	bytesSent        uint64
	bytesReceived    uint64
	wouldBlockReads  uint64
	wouldBlockWrites uint64

	messagesSentDesc     *prometheus.Desc
	messagesReceivedDesc *prometheus.Desc
	bytesSentDesc        *prometheus.Desc
	bytesReceivedDesc    *prometheus.Desc
	wouldBlockReadsDesc  *prometheus.Desc
	wouldBlockWritesDesc *prometheus.Desc
}

// NewConnMetrics returns a ConnMetrics collector with its descriptors
// built, ready to register and to update from a Connection's I/O
// loop.
func NewConnMetrics() *ConnMetrics {
	return &ConnMetrics{
		messagesSentDesc: prometheus.NewDesc(
			"dbus_messages_sent_total", "D-Bus messages written to the transport.", nil, nil),
		messagesReceivedDesc: prometheus.NewDesc(
			"dbus_messages_received_total", "D-Bus messages decoded from the transport.", nil, nil),
		bytesSentDesc: prometheus.NewDesc(
			"dbus_bytes_sent_total", "Bytes written to the transport.", nil, nil),
		bytesReceivedDesc: prometheus.NewDesc(
			"dbus_bytes_received_total", "Bytes read from the transport.", nil, nil),
		wouldBlockReadsDesc: prometheus.NewDesc(
			"dbus_would_block_reads_total", "Reads that reported EWOULDBLOCK/EAGAIN.", nil, nil),
		wouldBlockWritesDesc: prometheus.NewDesc(
			"dbus_would_block_writes_total", "Writes that reported EWOULDBLOCK/EAGAIN.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (m *ConnMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.messagesSentDesc
	ch <- m.messagesReceivedDesc
	ch <- m.bytesSentDesc
	ch <- m.bytesReceivedDesc
	ch <- m.wouldBlockReadsDesc
	ch <- m.wouldBlockWritesDesc
}

// Collect implements prometheus.Collector.
func (m *ConnMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(m.messagesSentDesc, prometheus.CounterValue, float64(m.messagesSent))
	ch <- prometheus.MustNewConstMetric(m.messagesReceivedDesc, prometheus.CounterValue, float64(m.messagesReceived))
	ch <- prometheus.MustNewConstMetric(m.bytesSentDesc, prometheus.CounterValue, float64(m.bytesSent))
	ch <- prometheus.MustNewConstMetric(m.bytesReceivedDesc, prometheus.CounterValue, float64(m.bytesReceived))
	ch <- prometheus.MustNewConstMetric(m.wouldBlockReadsDesc, prometheus.CounterValue, float64(m.wouldBlockReads))
	ch <- prometheus.MustNewConstMetric(m.wouldBlockWritesDesc, prometheus.CounterValue, float64(m.wouldBlockWrites))
}
