package main

import (
	"fmt"
	"time"
)

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	Host              string        `env:"HOST,default=localhost"`
	DebugPort         int           `env:"DEBUG_PORT,default=8089"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	TopicsPerPage     int           `env:"TOPICS_PER_PAGE,default=10"`
	PostsPerPage      int           `env:"POSTS_PER_PAGE,default=5"`
	ModerationMask    string        `env:"MODERATION_MASK,default=*"`
	StatsInterval     time.Duration `env:"STATS_INTERVAL,default=5s"`
}

// MaskRune converts the configured mask into a single rune.
func MaskRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("MODERATION_MASK must be a single character, got %q", str)
	}
	return r[0], nil
}
