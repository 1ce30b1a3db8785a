package app

import (
	"github.com/sirupsen/logrus"
)

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL"`
	ServerName string `env:"SERVER_NAME"`
}

// Setup configures the process-wide logrus defaults.
func (logConf *LoggingConfig) Setup() {
	level, err := logrus.ParseLevel(logConf.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if logConf.ServerName != "" {
		logrus.AddHook(&serverNameHook{name: logConf.ServerName})
	}
}

type serverNameHook struct {
	name string
}

func (h *serverNameHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serverNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["server"] = h.name
	return nil
}
