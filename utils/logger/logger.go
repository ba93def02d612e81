// Package logger owns both process logging and the stdout wire. Logs go to
// stderr and a rotating file; stdout carries only protocol messages.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/reservoir-data/tap-pushbullet/constants"
)

var (
	logger zerolog.Logger

	// guards stdout so concurrent writers never interleave messages
	stdoutMu sync.Mutex
)

func init() {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	logger = zerolog.New(console()).With().Timestamp().Logger()
}

func console() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// Init attaches a rotating log file under the config folder. Called once the
// command line has stashed the folder; before that the console writer alone
// is active.
func Init() {
	configFolder := viper.GetString(constants.ConfigFolder)
	if configFolder == "" {
		return
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(configFolder, "logs", fmt.Sprintf("%s.log", constants.TapName)),
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	logger = zerolog.New(zerolog.MultiLevelWriter(console(), fileWriter)).With().Timestamp().Logger()
}

func Info(v ...any) {
	logger.Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	logger.Info().Msgf(format, v...)
}

func Debug(v ...any) {
	logger.Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...any) {
	logger.Debug().Msgf(format, v...)
}

func Warn(v ...any) {
	logger.Warn().Msg(fmt.Sprint(v...))
}

func Warnf(format string, v ...any) {
	logger.Warn().Msgf(format, v...)
}

func Error(v ...any) {
	logger.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	logger.Error().Msgf(format, v...)
}

// Fatal logs the message and exits with a non zero code.
func Fatal(v ...any) {
	logger.Fatal().Msg(fmt.Sprint(v...))
}

func Fatalf(format string, v ...any) {
	logger.Fatal().Msgf(format, v...)
}

// WriteMessage emits one protocol message on stdout as a single JSON line.
func WriteMessage(message any) {
	serialized, err := json.Marshal(message)
	if err != nil {
		Fatalf("failed to serialize message for stdout: %s", err)
	}

	stdoutMu.Lock()
	defer stdoutMu.Unlock()

	fmt.Fprintln(os.Stdout, string(serialized))
}

// WriteIndented pretty prints a document on stdout, used for catalogs and
// connector metadata meant to be read or piped into files by hand.
func WriteIndented(document any) {
	serialized, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		Fatalf("failed to serialize document for stdout: %s", err)
	}

	stdoutMu.Lock()
	defer stdoutMu.Unlock()

	fmt.Fprintln(os.Stdout, string(serialized))
}

// FileLoggerWithPath writes content to an exact path, serializing anything
// that is not already raw bytes or a string.
func FileLoggerWithPath(content any, path string) error {
	var serialized []byte
	switch typed := content.(type) {
	case []byte:
		serialized = typed
	case string:
		serialized = []byte(typed)
	default:
		data, err := json.MarshalIndent(content, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize content for file %s: %s", path, err)
		}
		serialized = data
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for %s: %s", path, err)
	}

	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %s", path, err)
	}

	return nil
}
