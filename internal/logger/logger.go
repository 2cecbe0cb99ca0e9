package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log — глобальный логгер приложения.
var Log = logrus.New()

// Init настраивает уровень и формат логов из переменных окружения.
func Init() {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("ENVIRONMENT")) == "production" {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
