package dispatcher

import (
	"log/slog"
	"os"
	"strings"
)

type logLevel int

const (
	logOff logLevel = iota
	logInterceptOnly
	logDebug
)

var level = parseLogLevel()

func parseLogLevel() logLevel {
	if os.Getenv("BRIDGEFS_DEBUG") != "" {
		return logDebug
	}
	level := strings.ToLower(strings.TrimSpace(os.Getenv("BRIDGEFS_LOG_LEVEL")))
	switch level {
	case "", "off", "none", "0":
		return logOff
	case "intercept", "info", "1":
		return logInterceptOnly
	case "debug", "verbose", "2":
		return logDebug
	default:
		return logOff
	}
}

func logPathOp(op, path string, backend bool) {
	if level < logInterceptOnly {
		return
	}
	slog.Info("dispatch", "op", op, "path", path, "route", routeName(backend))
}

func logFDOp(op string, fd int64, backend bool) {
	if level < logDebug {
		return
	}
	slog.Debug("dispatch", "op", op, "fd", fd, "route", routeName(backend))
}

func routeName(backend bool) string {
	if backend {
		return "backend"
	}
	return "fallback"
}
