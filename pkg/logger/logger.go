package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// log - общий логгер процесса. До вызова Init ничего не пишет,
// поэтому пакеты можно использовать в тестах без инициализации
var log = zerolog.Nop()

// Init настраивает JSON логгер в stdout с полем service
func Init(serviceName string, level string) {
	InitWithWriter(serviceName, level, os.Stdout)
}

// InitWithWriter настраивает логгер с произвольным writer (используется в тестах)
func InitWithWriter(serviceName string, level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	log = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

func With() zerolog.Context {
	return log.With()
}

// Logger возвращает копию текущего логгера для компонентов,
// которым нужен собственный экземпляр (например, с доп. полями)
func Logger() zerolog.Logger {
	return log
}

// Printf адаптирует логгер к интерфейсам вида Printf(format, args...)
// (cron, kafka-go). Пишет на уровне info
type Printf struct {
	Component string
}

func (p Printf) Printf(format string, args ...interface{}) {
	log.Info().Str("component", p.Component).Msgf(format, args...)
}
