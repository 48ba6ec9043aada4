package msg

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{DisableTimestamp: true},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
}

// SetVerbosity maps -q/-v style counts onto logrus levels.
func SetVerbosity(v int) {
	switch {
	case v < 0:
		Log.SetLevel(logrus.ErrorLevel)
	case v == 0:
		Log.SetLevel(logrus.InfoLevel)
	default:
		Log.SetLevel(logrus.DebugLevel)
	}
}

func WithTree(tree string) *logrus.Entry {
	return Log.WithField("tree", tree)
}

func WithPackage(pkg string) *logrus.Entry {
	return Log.WithField("package", pkg)
}

func WithFile(file string) *logrus.Entry {
	return Log.WithField("file", file)
}
