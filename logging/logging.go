// Package logging is a thin shim over the standard logger so call sites
// read like plain log.Printf/log.Fatalf, but with level prefixes and a
// LOG_LEVEL gate (§6 config: LOG_LEVEL, default "info").
package logging

import (
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current = LevelInfo

func init() {
	SetLevel(os.Getenv("LOG_LEVEL"))
}

func SetLevel(s string) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		current = LevelDebug
	case "warn", "warning":
		current = LevelWarn
	case "error":
		current = LevelError
	default:
		current = LevelInfo
	}
}

func Debugf(format string, args ...any) {
	if current <= LevelDebug {
		log.Printf("[debug] "+format, args...)
	}
}

func Infof(format string, args ...any) {
	if current <= LevelInfo {
		log.Printf("[info] "+format, args...)
	}
}

func Warnf(format string, args ...any) {
	if current <= LevelWarn {
		log.Printf("[warn] "+format, args...)
	}
}

func Errorf(format string, args ...any) {
	if current <= LevelError {
		log.Printf("[error] "+format, args...)
	}
}

func Fatalf(format string, args ...any) {
	log.Fatalf("[fatal] "+format, args...)
}
