package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger shared by the controller and the agent
var Log = logrus.New()

func init() {
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	Log.SetLevel(logrus.InfoLevel)
}

// SetLevel sets the log level from a string such as "debug" or "warn".
// Unknown levels fall back to info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// SetFormat switches between the text formatter and JSON output
func SetFormat(format string) {
	if format == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
}
