package utils

import "github.com/rs/zerolog/log"

// Must stops the process on a startup error.
func Must(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}

// LogFor logs a non-fatal shutdown error.
func LogFor(err error, msg string) {
	if err != nil {
		log.Warn().Err(err).Msg(msg)
	}
}
