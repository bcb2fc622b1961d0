/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

func TestAllLevels(t *testing.T) {
	tests := []struct {
		level    log.Level
		enabled  []log.Level
		disabled []log.Level
	}{
		{log.CRITICAL, []log.Level{log.CRITICAL}, []log.Level{log.ERROR, log.WARNING, log.INFO, log.DEBUG}},
		{log.ERROR, []log.Level{log.CRITICAL, log.ERROR}, []log.Level{log.WARNING, log.INFO, log.DEBUG}},
		{log.WARNING, []log.Level{log.CRITICAL, log.ERROR, log.WARNING}, []log.Level{log.INFO, log.DEBUG}},
		{log.INFO, []log.Level{log.CRITICAL, log.ERROR, log.WARNING, log.INFO}, []log.Level{log.DEBUG}},
		{log.DEBUG, []log.Level{log.CRITICAL, log.ERROR, log.WARNING, log.INFO, log.DEBUG}, nil},
	}

	for _, tc := range tests {
		module := "sample-module-" + tc.level.String()

		SetLevel(module, tc.level)
		require.Equal(t, tc.level, GetLevel(module))

		for _, l := range tc.enabled {
			require.True(t, IsEnabledFor(module, l), "%s should be enabled for %s", l, module)
		}

		for _, l := range tc.disabled {
			require.False(t, IsEnabledFor(module, l), "%s should be disabled for %s", l, module)
		}
	}
}

func TestDefaultLevel(t *testing.T) {
	require.Equal(t, log.INFO, GetLevel("never-configured-module"))
}

func TestCallerInfos(t *testing.T) {
	module := "sample-module-caller-info"

	require.True(t, IsCallerInfoEnabled(module, log.INFO))

	ShowCallerInfo(module, log.CRITICAL)
	HideCallerInfo(module, log.INFO)

	require.True(t, IsCallerInfoEnabled(module, log.CRITICAL))
	require.False(t, IsCallerInfoEnabled(module, log.INFO))
	require.True(t, IsCallerInfoEnabled(module, log.DEBUG))
}

func TestParseLevel(t *testing.T) {
	for expected, names := range map[log.Level][]string{
		log.CRITICAL: {"critical", "CRITICAL", "CriticAL"},
		log.ERROR:    {"error", "ERROR"},
		log.WARNING:  {"warning", "WarninG"},
		log.INFO:     {"info", "iNFo"},
		log.DEBUG:    {"debug", "DebUg"},
	} {
		for _, name := range names {
			actual, err := ParseLevel(name)
			require.NoError(t, err)
			require.Equal(t, expected, actual)
		}
	}

	for _, name := range []string{"", "D", "DE BUG", "."} {
		_, err := ParseLevel(name)
		require.Error(t, err)
	}
}

func TestStdLogger(t *testing.T) {
	const module = "std-logger-module"

	var buf bytes.Buffer

	logger := &moduledLogger{backend: newStdLogger(module, &buf), module: module}

	SetLevel(module, log.WARNING)

	logger.Infof("hidden %s", "line")
	require.Empty(t, buf.String())

	logger.Errorf("brown %s jumps over the lazy %s", "fox", "dog")
	require.Contains(t, buf.String(), "["+module+"]")
	require.Contains(t, buf.String(), "-> ERROR brown fox jumps over the lazy dog")

	buf.Reset()
	HideCallerInfo(module, log.WARNING)
	logger.Warnf("no caller")
	require.Contains(t, buf.String(), "UTC -> WARNING no caller")

	require.Panics(t, func() { logger.Panicf("boom") })
}

type recordingProvider struct {
	mutex sync.Mutex
	lines []string
}

func (p *recordingProvider) GetLogger(string) log.Logger { return p }

func (p *recordingProvider) record(level, format string, args ...interface{}) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.lines = append(p.lines, level+" "+fmt.Sprintf(format, args...))
}

func (p *recordingProvider) Panicf(format string, args ...interface{}) { p.record("CRITICAL", format, args...) }
func (p *recordingProvider) Fatalf(format string, args ...interface{}) { p.record("CRITICAL", format, args...) }
func (p *recordingProvider) Errorf(format string, args ...interface{}) { p.record("ERROR", format, args...) }
func (p *recordingProvider) Warnf(format string, args ...interface{})  { p.record("WARNING", format, args...) }
func (p *recordingProvider) Infof(format string, args ...interface{})  { p.record("INFO", format, args...) }
func (p *recordingProvider) Debugf(format string, args ...interface{}) { p.record("DEBUG", format, args...) }

func TestCustomProvider(t *testing.T) {
	loggerProviderOnce = sync.Once{}
	defer func() { loggerProviderOnce = sync.Once{} }()

	custom := &recordingProvider{}
	Initialize(custom)

	const module = "custom-module"

	SetLevel(module, log.INFO)

	logger := New(module)
	logger.Infof("record %d", 1)
	logger.Debugf("dropped")

	require.Contains(t, custom.lines, "INFO record 1")
	require.NotContains(t, custom.lines, "DEBUG dropped")
}
