package storage

import (
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// badgerLogger adapts zap to badger's logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func newBadgerLogger(log *logging.Logger) *badgerLogger {
	return &badgerLogger{log: log.Component("badger").Sugar()}
}

// Badger terminates most lines with a newline.
func trim(f string) string { return strings.TrimRight(f, "\n") }

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.log.Errorf(trim(f), v...) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warnf(trim(f), v...) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.log.Debugf(trim(f), v...) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.log.Debugf(trim(f), v...) }
