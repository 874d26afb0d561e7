package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the command layer at startup.
// Each module/package should create its own sub-logger so that logs remain "grep-able" by origin.
var GlobalLogger *Logger

// Logger describes a logging object which can emit logs to console and to any number of arbitrary io.Writer
// channels in structured format.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// multiLogger describes a logger that will be used to output structured logs to any arbitrary channel(s).
	multiLogger zerolog.Logger

	// consoleLogger describes a logger that will be used to output unstructured output to console.
	consoleLogger zerolog.Logger

	// writers describes a list of io.Writer objects where structured log output will go.
	writers []io.Writer
}

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The Logger will output to console when
// consoleEnabled is set, and will emit structured logs to any provided io.Writer channels.
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	// The two base loggers start out disabled so that we do not get nil dereferences down the line
	baseMultiLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	baseConsoleLogger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	// If we are provided a list of writers, update the multi logger
	if len(writers) > 0 {
		baseMultiLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	}

	// If console logging is enabled, update the console logger
	if consoleEnabled {
		consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout}
		baseConsoleLogger = zerolog.New(consoleWriter).Level(level)
	}

	return &Logger{
		level:         level,
		multiLogger:   baseMultiLogger,
		consoleLogger: baseConsoleLogger,
		writers:       writers,
	}
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of
// this function is for each package to have its own unique logger (e.g. "module": "resolution").
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subMultiLogger := l.multiLogger.With().Str(key, value).Logger()
	subConsoleLogger := l.consoleLogger.With().Str(key, value).Logger()
	return &Logger{
		level:         l.level,
		multiLogger:   subMultiLogger,
		consoleLogger: subConsoleLogger,
		writers:       l.writers,
	}
}

// AddWriter will add a writer to the list of channels where structured log output will be sent.
func (l *Logger) AddWriter(writer io.Writer) {
	// Check to see if the writer is already in the array of writers
	for _, w := range l.writers {
		if writer == w {
			return
		}
	}

	// Add it to the list of writers and update the multi logger
	l.writers = append(l.writers, writer)
	l.multiLogger = zerolog.New(zerolog.MultiLevelWriter(l.writers...)).Level(l.level).With().Timestamp().Logger()
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.multiLogger = l.multiLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Trace(), l.multiLogger.Trace(), msg, err, info)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Debug(), l.multiLogger.Debug(), msg, err, info)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Info(), l.multiLogger.Info(), msg, err, info)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Warn(), l.multiLogger.Warn(), msg, err, info)
}

// Error is a wrapper function that will log an error event
func (l *Logger) Error(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Error(), l.multiLogger.Error(), msg, err, info)
}

// Panic is a wrapper function that will log a panic event
func (l *Logger) Panic(args ...any) {
	msg, err, info := buildMsg(args...)
	l.emit(l.consoleLogger.Panic(), l.multiLogger.Panic(), msg, err, info)
}

// emit chains the given error and structured log info onto both events and sends them out to their respective
// channels. Stack traces are attached when the log level is debug or below.
func (l *Logger) emit(consoleLog *zerolog.Event, multiLog *zerolog.Event, msg string, err error, info StructuredLogInfo) {
	// Append the error to each event. Note that even if err is nil, there will not be a panic here
	consoleLog.Err(err)
	multiLog.Err(err)

	// If we are in debug mode or below, add the stack traces as well for debugging
	if l.level <= zerolog.DebugLevel {
		consoleLog.Stack()
		multiLog.Stack()
	}

	// If we are provided a structured log info object, add that as a key-value pair to the events
	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// Sending the message also sends out the log events to their respective streams. The multi logger message is
	// deferred so that all channels receive a panic log before the panic unwinds.
	defer multiLog.Msg(msg)
	consoleLog.Msg(msg)
}

// buildMsg takes a variadic list of arguments of any type and returns the message string along with any error
// or StructuredLogInfo object found in the arguments. Only one error and one StructuredLogInfo can be provided
// for each log message.
func buildMsg(args ...any) (string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", nil, nil
	}

	output := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case StructuredLogInfo:
			info = t
		case error:
			err = t
		default:
			output = append(output, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(output, ""), err, info
}
