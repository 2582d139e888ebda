package ora

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type loggerBox struct {
	l logrus.FieldLogger
}

var loggerPtr atomic.Pointer[loggerBox]

func init() {
	loggerPtr.Store(&loggerBox{l: logrus.StandardLogger()})
}

// SetLogger sets the logger used for diagnostics such as the legacy
// entry-name fallback. Passing nil restores logrus.StandardLogger.
// SetLogger is safe for concurrent use.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	loggerPtr.Store(&loggerBox{l: l})
}

// Logger returns the current logger.
func Logger() logrus.FieldLogger {
	return loggerPtr.Load().l
}
