/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"errors"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go-exchange/spi/log"
)

const defaultModule = ""

//nolint:gochecknoglobals
var levels = newModuleLevels()

// moduleLevels keeps the level and caller info switches of every module.
type moduleLevels struct {
	mutex      sync.RWMutex
	levels     map[string]log.Level
	callerInfo map[string]map[log.Level]bool
}

func newModuleLevels() *moduleLevels {
	return &moduleLevels{
		levels:     map[string]log.Level{defaultModule: log.INFO},
		callerInfo: map[string]map[log.Level]bool{},
	}
}

func (m *moduleLevels) setLevel(module string, level log.Level) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.levels[module] = level
}

func (m *moduleLevels) getLevel(module string) log.Level {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if level, ok := m.levels[module]; ok {
		return level
	}

	return m.levels[defaultModule]
}

func (m *moduleLevels) isEnabledFor(module string, level log.Level) bool {
	return level <= m.getLevel(module)
}

func (m *moduleLevels) setCallerInfo(module string, level log.Level, enabled bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.callerInfo[module]; !ok {
		m.callerInfo[module] = map[log.Level]bool{}
	}

	m.callerInfo[module][level] = enabled
}

// isCallerInfoEnabled defaults to true for modules that never changed it.
func (m *moduleLevels) isCallerInfoEnabled(module string, level log.Level) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	enabled, ok := m.callerInfo[module][level]
	if !ok {
		return true
	}

	return enabled
}

func parseLevel(name string) (log.Level, error) {
	upper := strings.ToUpper(name)

	for l := log.CRITICAL; l <= log.DEBUG; l++ {
		if l.String() == upper {
			return l, nil
		}
	}

	return log.ERROR, errors.New("logger: invalid log level")
}
