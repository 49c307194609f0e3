package whatsapp

import (
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter adapts slog.Logger to whatsmeow's log interface.
type slogAdapter struct {
	log *slog.Logger
}

func (s *slogAdapter) Debugf(msg string, args ...interface{}) {
	s.log.Debug(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Infof(msg string, args ...interface{}) {
	s.log.Info(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Warnf(msg string, args ...interface{}) {
	s.log.Warn(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Errorf(msg string, args ...interface{}) {
	s.log.Error(fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Sub(module string) waLog.Logger {
	return &slogAdapter{log: s.log.With("module", module)}
}

// Ensure slogAdapter implements waLog.Logger
var _ waLog.Logger = (*slogAdapter)(nil)
