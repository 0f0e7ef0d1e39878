/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	registryMu     sync.RWMutex
	registry       = map[string]*logrus.Logger{}
	outputMu       sync.RWMutex
	consoleLevel   = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleFormat  = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogEnabled = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir     = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogFormat  = EnvDefaultString("FILE_LOG_FORMAT", "text")
)

var consoleOutput io.Writer = os.Stdout

// SetConsoleOutput redirects every console hook, mainly for tests and CLIs
// that print structured output on stdout.
func SetConsoleOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	consoleOutput = w
}

func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleFormat = "json"
	} else {
		consoleFormat = "text"
	}
}

// ConfigureFileLog enables daily log files under dir for loggers created afterwards.
func ConfigureFileLog(dir string, format string) {
	fileLogEnabled = true
	if dir != "" {
		fileLogDir = dir
	}
	fileLogFormat = format
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// NewLogger returns the named logger, creating and registering it on first use.
func NewLogger(name string) *logrus.Logger {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(consoleLevel)
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(consoleFormat, name, true))
	l.AddHook(&consoleWriterHook{formatter: l.Formatter})
	if fileLogEnabled {
		l.AddHook(&dailyFileHook{
			dir:       fileLogDir,
			name:      name,
			formatter: newFormatter(fileLogFormat, name, false),
		})
	}
	registry[name] = l
	return l
}

func newFormatter(format, name string, color bool) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jColorFormatter{LoggerName: name, Color: color, NameWidth: 10}
}

// SetLoggerLevel changes the level of a registered logger.
func SetLoggerLevel(name string, lvlStr string) bool {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// SetAllLoggersLevel changes the level of every registered logger and of loggers created later.
func SetAllLoggersLevel(lvlStr string) {
	lvl := ParseLogLevel(lvlStr)
	registryMu.Lock()
	defer registryMu.Unlock()
	consoleLevel = lvl
	for _, l := range registry {
		l.SetLevel(lvl)
	}
}

type consoleWriterHook struct {
	formatter logrus.Formatter
}

func (h *consoleWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleWriterHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	outputMu.RLock()
	defer outputMu.RUnlock()
	_, err = consoleOutput.Write(b)
	return err
}

// dailyFileHook appends entries to <dir>/<name>-<yyyy-mm-dd>.log.
type dailyFileHook struct {
	dir       string
	name      string
	formatter logrus.Formatter
	mu        sync.Mutex
	date      string
	file      *os.File
}

func (h *dailyFileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *dailyFileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	date := e.Time.Format("2006-01-02")
	if h.file == nil || h.date != date {
		if h.file != nil {
			_ = h.file.Close()
		}
		if err := os.MkdirAll(h.dir, 0o755); err != nil {
			return err
		}
		name := strings.ToLower(h.name) + "-" + date + ".log"
		f, err := os.OpenFile(filepath.Join(h.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		h.file, h.date = f, date
	}
	_, err = h.file.Write(b)
	return err
}

// Log4jColorFormatter renders "time LEVEL pid --- [main] name file:line : msg k=v".
type Log4jColorFormatter struct {
	LoggerName string
	Color      bool
	NameWidth  int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	lvl := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	name := fmt.Sprintf("%*s", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth))
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(f.paint(lvl, levelColor(entry.Level)))
	b.WriteString(f.paint(fmt.Sprintf(" %-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" --- [main] ")
	b.WriteString(f.paint(name, ansiCyan))
	if entry.Caller != nil {
		b.WriteString(f.paint(" "+callerOf(entry), ansiFaint))
	}
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *Log4jColorFormatter) paint(s, code string) string {
	if !f.Color {
		return s
	}
	return code + s + ansiReset
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	rec := struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}{
		Time:    entry.Time.Format(timestampFormat),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = callerOf(entry)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ansiRed
	case logrus.WarnLevel:
		return ansiYellow
	case logrus.InfoLevel:
		return ansiGreen
	case logrus.DebugLevel:
		return ansiBlue
	default:
		return ansiMagenta
	}
}

// callerOf returns "dir/file.go:line" of the logging call site.
func callerOf(entry *logrus.Entry) string {
	file := filepath.ToSlash(entry.Caller.File)
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		file = parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return file + ":" + strconv.Itoa(entry.Caller.Line)
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// EnvDefaultString returns the environment value of key, or def when unset or empty.
func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvDefaultBool parses the environment value of key, or returns def when unset or empty.
func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// EnvDefaultDuration parses the environment value of key as a duration.
func EnvDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	}
	return def
}
