package dbus

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// config holds Connection construction options, filled by Option
// functions — the same pattern the teacher's config.go uses for
// Client (WithConnectionReadSize, WithStringConverterSize,
// WithSerialCheck), generalized with a logger and a metrics
// registerer for the ambient stack this package adds.
type config struct {
	readSize   int
	logger     *logrus.Logger
	registerer prometheus.Registerer
	uid        int
}

func defaultConfig() *config {
	return &config{
		readSize: 4096,
		logger:   discardingLogger(),
		uid:      os.Getuid(),
	}
}

func discardingLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = discard{}
	return l
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Option configures a Connection, following the teacher's
// config.go/client.go functional-options idiom.
type Option func(*config)

// WithConnectionReadSize sets the size of the chunk read from the
// transport on each Poll call.
func WithConnectionReadSize(n int) Option {
	return func(c *config) { c.readSize = n }
}

// WithLogger sets the logger used for handshake and protocol-error
// events. Without this option everything is discarded, matching the
// teacher's silent-by-default library posture; logger must not be nil.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRegisterer registers the connection's ConnMetrics collector with
// reg. Metrics are not exposed unless this option is given.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// WithUID sets the numeric UID presented during AUTH EXTERNAL. It
// defaults to os.Getuid() on platforms that have one.
func WithUID(uid int) Option {
	return func(c *config) { c.uid = uid }
}
