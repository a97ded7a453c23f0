package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config is the process configuration. Game constants (starting stack,
// room capacity, hand size) are fixed in their owning packages and are
// not configurable here.
type Config struct {
	Addr string
}

// Load reads a .env file if one is present, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Addr: getenv("CARDROOM_ADDR", ":8080"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
