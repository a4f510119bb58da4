package config

import (
	"io"
	"time"
)

// Config exposes typed read access to runtime configuration.
//
// Keys use dotted paths ("modules.identity.otp.ttl_minutes"). Missing keys
// yield the zero value unless a default was registered when loading.
type Config interface {
	io.Closer

	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	GetDay(key string) time.Duration

	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray splits a comma separated value, or reads a YAML list.
	// Blank elements are dropped and the rest trimmed.
	GetArray(key string) []string

	// GetMap parses "k:v,k:v" pairs.
	GetMap(key string) map[string]string
}
