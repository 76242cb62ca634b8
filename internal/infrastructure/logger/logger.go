package logger

import (
	"io"
	"log"
	"os"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

func init() {
	logFlags := log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

	// Everything goes to stderr so transcript output on stdout stays clean.
	Info = log.New(os.Stderr, "INFO: ", logFlags)
	Error = log.New(os.Stderr, "ERROR: ", logFlags)
	Warn = log.New(os.Stderr, "WARN: ", logFlags)

	debugOut := io.Writer(io.Discard)
	if os.Getenv("MOJIKA_DEBUG") != "" {
		debugOut = os.Stderr
	}
	Debug = log.New(debugOut, "DEBUG: ", logFlags)
}
