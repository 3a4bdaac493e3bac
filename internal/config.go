package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize       int           `env:"BUFFER_SIZE,required=true"`
	SessionQueueSize int           `env:"SESSION_QUEUE_SIZE,required=true"`
	CharReplacement  string        `env:"CHARACTER_REPLACEMENT,required=true"`
	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,required=true"`
	MetricInterval   time.Duration `env:"METRIC_INTERVAL,required=true"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,required=true"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`

	// DebugPort exposes the storage inspector when set to a non-zero port.
	DebugPort int `env:"DEBUG_PORT"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
