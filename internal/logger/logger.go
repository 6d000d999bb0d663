package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures Build.
type Options struct {
	JSON  bool
	Debug bool
	// OutputPaths defaults to stdout. Extra paths, e.g. a log file, receive the same entries.
	OutputPaths []string
}

// New builds the console or json logger used by the CLI.
func New(json bool, debug bool) (*zap.Logger, error) {
	return Build(Options{JSON: json, Debug: debug})
}

func Build(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if opts.JSON {
		encoding = "json"
	}

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	return cfg.Build()
}
