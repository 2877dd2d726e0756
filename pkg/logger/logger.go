package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output targets
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// NewLogger builds the process logger. File output rotates through lumberjack.
func NewLogger(cfg *config.LoggerConfig) (*zap.Logger, error) {
	c := withDefaults(*cfg)

	syncer, err := writeSyncer(c)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddCaller()}
	if c.Stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	core := zapcore.NewCore(encoder(c), syncer, getLogLevel(c.Level))
	return zap.New(core, opts...), nil
}

func withDefaults(c config.LoggerConfig) config.LoggerConfig {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	if c.FilePath == "" {
		c.FilePath = "logs/contentd.log"
	}
	if c.MaxSize == 0 {
		c.MaxSize = 100 // MB
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAge == 0 {
		c.MaxAge = 7 // days
	}
	if c.TimeFormat == "" {
		c.TimeFormat = time.DateTime
	}
	return c
}

func writeSyncer(c config.LoggerConfig) (zapcore.WriteSyncer, error) {
	stdout := zapcore.Lock(zapcore.AddSync(os.Stdout))
	switch c.Output {
	case OutputStdout:
		return stdout, nil
	case OutputFile, OutputBoth:
		if err := os.MkdirAll(filepath.Dir(c.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.MaxSize,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAge,
			LocalTime:  true,
			Compress:   c.Compress,
		})
		if c.Output == OutputFile {
			return file, nil
		}
		return zapcore.NewMultiWriteSyncer(stdout, file), nil
	default:
		return nil, fmt.Errorf("unknown log output %q", c.Output)
	}
}

func encoder(c config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeDuration = zapcore.StringDurationEncoder
	if c.Color && c.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	loc := resolveTimeZone(c.TimeZone)
	layout := c.TimeFormat
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(layout))
	}

	if c.Format == "console" {
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// resolveTimeZone falls back to the local zone for empty or unknown names
func resolveTimeZone(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// getLogLevel converts string level to zapcore.Level, defaulting to info
func getLogLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
