/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package log implements module based, leveled fmt-style logging for the exchange engine.
//
// Every package declares its own logger with New("aries-framework/<area>"). Levels are
// tracked per module and default to INFO. A custom backend can be installed with
// Initialize before the first line is logged.
package log

import (
	"sync"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

const (
	loggerNotInitializedMsg = "Default logger initialized (call log.Initialize() to use a custom logger)"
	loggerModule            = "aries-framework/common"
)

// Log is a module scoped logger. The backend is resolved lazily on first use.
type Log struct {
	instance log.Logger
	module   string
	once     sync.Once
}

// New creates a Logger for the given module.
func New(module string) *Log {
	return &Log{module: module}
}

// Fatalf logs at CRITICAL and may terminate the process depending on the backend.
func (l *Log) Fatalf(msg string, args ...interface{}) {
	l.logger().Fatalf(msg, args...)
}

// Panicf logs at CRITICAL and panics.
func (l *Log) Panicf(msg string, args ...interface{}) {
	l.logger().Panicf(msg, args...)
}

// Debugf logs at DEBUG.
func (l *Log) Debugf(msg string, args ...interface{}) {
	l.logger().Debugf(msg, args...)
}

// Infof logs at INFO.
func (l *Log) Infof(msg string, args ...interface{}) {
	l.logger().Infof(msg, args...)
}

// Warnf logs at WARNING.
func (l *Log) Warnf(msg string, args ...interface{}) {
	l.logger().Warnf(msg, args...)
}

// Errorf logs at ERROR.
func (l *Log) Errorf(msg string, args ...interface{}) {
	l.logger().Errorf(msg, args...)
}

func (l *Log) logger() log.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})

	return l.instance
}

// SetLevel sets the level of a module. An empty module sets the default for all modules.
func SetLevel(module string, level log.Level) {
	levels.setLevel(module, level)
}

// GetLevel returns the level of a module.
func GetLevel(module string) log.Level {
	return levels.getLevel(module)
}

// IsEnabledFor reports whether a message at level would be logged for module.
func IsEnabledFor(module string, level log.Level) bool {
	return levels.isEnabledFor(module, level)
}

// ParseLevel returns the log level from its case insensitive name.
func ParseLevel(level string) (log.Level, error) {
	return parseLevel(level)
}

// ShowCallerInfo turns on caller info for a module and level.
// Custom backends may ignore this setting.
func ShowCallerInfo(module string, level log.Level) {
	levels.setCallerInfo(module, level, true)
}

// HideCallerInfo turns off caller info for a module and level.
func HideCallerInfo(module string, level log.Level) {
	levels.setCallerInfo(module, level, false)
}

// IsCallerInfoEnabled reports whether caller info is shown for a module and level.
func IsCallerInfoEnabled(module string, level log.Level) bool {
	return levels.isCallerInfoEnabled(module, level)
}
