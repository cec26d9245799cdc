package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. DEV gets a human readable console writer,
// every other environment gets JSON lines on stdout.
func Setup(env, level string) {
	SetupWriter(os.Stdout, env, level)
}

func SetupWriter(w io.Writer, env, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if env == "DEV" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// BotLogger adapts zerolog to the Println/Printf logger used by the Telegram client library.
type BotLogger struct {
	Logger zerolog.Logger
}

func (l BotLogger) Println(v ...interface{}) {
	l.Logger.Debug().Msg(fmt.Sprint(v...))
}

func (l BotLogger) Printf(format string, v ...interface{}) {
	l.Logger.Debug().Msgf(format, v...)
}
