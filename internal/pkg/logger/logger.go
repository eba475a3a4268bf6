package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields map[string]interface{}

type Logger struct {
	base *logrus.Logger
}

// New builds a JSON structured logger. When filePath is non-empty, output is
// duplicated to a rotated log file.
func New(level string, filePath string) *Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	if filePath != "" {
		rotated := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
		base.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}

	return &Logger{base: base}
}

func (logger *Logger) Debug(msg string, keysAndValues ...interface{}) {
	logger.base.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (logger *Logger) Info(msg string, keysAndValues ...interface{}) {
	logger.base.WithFields(toFields(keysAndValues)).Info(msg)
}

func (logger *Logger) Warn(msg string, keysAndValues ...interface{}) {
	logger.base.WithFields(toFields(keysAndValues)).Warn(msg)
}

func (logger *Logger) Error(msg string, keysAndValues ...interface{}) {
	logger.base.WithFields(toFields(keysAndValues)).Error(msg)
}

func (logger *Logger) WithError(err error) *logrus.Entry {
	return logger.base.WithError(err)
}

func (logger *Logger) WithFields(fields Fields) *logrus.Entry {
	return logger.base.WithFields(logrus.Fields(fields))
}

// LogService records one external-service operation with its duration and
// outcome.
func (logger *Logger) LogService(service, operation string, duration time.Duration, details map[string]interface{}, err error) {
	entry := logger.base.WithFields(logrus.Fields{
		"service":     service,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})

	for key, value := range details {
		entry = entry.WithField(key, value)
	}

	if err != nil {
		entry.WithError(err).Error("service operation failed")
		return
	}
	entry.Info("service operation completed")
}

// LogAgent records one agent step within a request.
func (logger *Logger) LogAgent(requestID, agent, operation string, duration time.Duration, details map[string]interface{}, err error) {
	entry := logger.base.WithFields(logrus.Fields{
		"request_id":  requestID,
		"agent":       agent,
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})

	for key, value := range details {
		entry = entry.WithField(key, value)
	}

	if err != nil {
		entry.WithError(err).Error("agent step failed")
		return
	}
	entry.Info("agent step completed")
}

func (logger *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	logger.base.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}).Info("request completed")
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
