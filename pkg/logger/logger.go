package logger

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

// Options - параметры вывода логов. Пустой Filename - только консоль.
type Options struct {
	Level      string
	Filename   string
	MaxSize    int // мегабайты
	MaxAge     int // дни
	MaxBackups int
	Console    io.Writer // по умолчанию os.Stdout
}

func New(opts Options) *logrus.Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{})

	log.SetOutput(Writer(opts))

	// Уровень логирования
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel // Уровень по умолчанию, если передан некорректный
	}
	log.SetLevel(level)
	return log
}

// Writer возвращает консоль и, если задан файл, ротируемый файл логов
func Writer(opts Options) io.Writer {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Filename == "" {
		return console
	}
	return io.MultiWriter(console, &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    opts.MaxSize,
		MaxAge:     opts.MaxAge,
		MaxBackups: opts.MaxBackups,
	})
}
