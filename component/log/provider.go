/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"fmt"
	"io"
	builtinlog "log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

//nolint:gochecknoglobals
var (
	loggerProviderInstance log.LoggerProvider
	loggerProviderOnce     sync.Once
)

// Initialize installs a custom logging backend. It only takes effect if called before the first log line.
func Initialize(l log.LoggerProvider) {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = &moduledProvider{custom: l}
		loggerProviderInstance.GetLogger(loggerModule).Debugf("Logger provider initialized")
	})
}

func loggerProvider() log.LoggerProvider {
	loggerProviderOnce.Do(func() {
		loggerProviderInstance = &moduledProvider{}
		loggerProviderInstance.GetLogger(loggerModule).Debugf(loggerNotInitializedMsg)
	})

	return loggerProviderInstance
}

// moduledProvider gates every backend logger by the module level.
type moduledProvider struct {
	custom log.LoggerProvider
}

func (p *moduledProvider) GetLogger(module string) log.Logger {
	var backend log.Logger = newStdLogger(module, os.Stdout)
	if p.custom != nil {
		backend = p.custom.GetLogger(module)
	}

	return &moduledLogger{backend: backend, module: module}
}

type moduledLogger struct {
	backend log.Logger
	module  string
}

func (m *moduledLogger) Fatalf(format string, args ...interface{}) { m.backend.Fatalf(format, args...) }

func (m *moduledLogger) Panicf(format string, args ...interface{}) { m.backend.Panicf(format, args...) }

func (m *moduledLogger) Errorf(format string, args ...interface{}) {
	if IsEnabledFor(m.module, log.ERROR) {
		m.backend.Errorf(format, args...)
	}
}

func (m *moduledLogger) Warnf(format string, args ...interface{}) {
	if IsEnabledFor(m.module, log.WARNING) {
		m.backend.Warnf(format, args...)
	}
}

func (m *moduledLogger) Infof(format string, args ...interface{}) {
	if IsEnabledFor(m.module, log.INFO) {
		m.backend.Infof(format, args...)
	}
}

func (m *moduledLogger) Debugf(format string, args ...interface{}) {
	if IsEnabledFor(m.module, log.DEBUG) {
		m.backend.Debugf(format, args...)
	}
}

const (
	levelFormat      = "UTC %s-> %s "
	prefixFormat     = " [%s] "
	callerInfoFormat = "- %s "
	callerNotFound   = "n/a"
)

// stdLogger is the default backend built on the standard library logger.
// Line format: [<module>] <date> <time> UTC - <caller> -> <LEVEL> <text>.
type stdLogger struct {
	logger *builtinlog.Logger
	module string
}

func newStdLogger(module string, out io.Writer) *stdLogger {
	return &stdLogger{
		logger: builtinlog.New(out, fmt.Sprintf(prefixFormat, module), builtinlog.Ldate|builtinlog.Ltime|builtinlog.LUTC),
		module: module,
	}
}

func (l *stdLogger) Fatalf(format string, args ...interface{}) {
	l.output(log.CRITICAL, format, args...)
	os.Exit(1)
}

func (l *stdLogger) Panicf(format string, args ...interface{}) {
	l.output(log.CRITICAL, format, args...)
	panic(fmt.Sprintf(format, args...))
}

func (l *stdLogger) Errorf(format string, args ...interface{}) { l.output(log.ERROR, format, args...) }

func (l *stdLogger) Warnf(format string, args ...interface{}) { l.output(log.WARNING, format, args...) }

func (l *stdLogger) Infof(format string, args ...interface{}) { l.output(log.INFO, format, args...) }

func (l *stdLogger) Debugf(format string, args ...interface{}) { l.output(log.DEBUG, format, args...) }

func (l *stdLogger) output(level log.Level, format string, args ...interface{}) {
	const callDepth = 3

	prefix := fmt.Sprintf(levelFormat, l.callerInfo(level), level.String())

	if err := l.logger.Output(callDepth, prefix+fmt.Sprintf(format, args...)); err != nil {
		fmt.Fprintf(os.Stderr, "error from logger.Output %v\n", err)
	}
}

// callerInfo walks the stack past this package to find the function that logged.
func (l *stdLogger) callerInfo(level log.Level) string {
	if !IsCallerInfoEnabled(l.module, level) {
		return ""
	}

	const (
		maxCallers  = 8
		skipCallers = 4
	)

	pcs := make([]uintptr, maxCallers)

	n := runtime.Callers(skipCallers, pcs)
	if n == 0 {
		return fmt.Sprintf(callerInfoFormat, callerNotFound)
	}

	frames := runtime.CallersFrames(pcs[:n])

	for {
		f, more := frames.Next()

		_, fnName := filepath.Split(f.Function)
		if !strings.HasPrefix(fnName, "log.") {
			if fnName == "" {
				fnName = callerNotFound
			}

			return fmt.Sprintf(callerInfoFormat, fnName)
		}

		if !more {
			return fmt.Sprintf(callerInfoFormat, callerNotFound)
		}
	}
}
