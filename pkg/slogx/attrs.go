package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr for the provided error under the key "error".
// Log sites across the transport and the coordinator use this so error
// output stays greppable under a single key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// ByteString creates a slog.Attr with the given key and the string form of
// the byte slice. Useful when logging raw payload bytes read back from the
// spool or the wire.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer creates a slog.Attr with the provided key and the string
// representation of the given fmt.Stringer value. Topics implement
// fmt.Stringer, so log sites pass them through here.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}
