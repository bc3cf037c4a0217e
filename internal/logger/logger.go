package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvProduction = "production"
	EnvDebug      = "debug"
)

func levelFor(env string) zapcore.Level {
	if env == EnvProduction {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// New builds the process logger. Production logs JSON to stdout; debug logs a
// coloured console format. A non-empty filePath tees JSON lines into that file.
func New(env, filePath string) (*zap.Logger, error) {
	level := levelFor(env)

	var cores []zapcore.Core
	if env == EnvProduction {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
