package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Hold TTL bounds are minutes because the
// public API accepts holdMinutes.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret for verifying holder bearer tokens (optional)
	AMQPURL        string // RabbitMQ URL for the event channel (optional)
	HoldMinutesDef int    // default hold TTL in minutes when the request omits holdMinutes
	HoldMinutesMin int    // smallest accepted holdMinutes
	HoldMinutesMax int    // largest accepted holdMinutes
	ReconcileSecs  int    // suggested client polling interval, surfaced to clients
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		HoldMinutesDef: intDefault("HOLD_MINUTES_DEFAULT", 10),
		HoldMinutesMin: intDefault("HOLD_MINUTES_MIN", 5),
		HoldMinutesMax: intDefault("HOLD_MINUTES_MAX", 10),
		ReconcileSecs:  intDefault("RECONCILE_INTERVAL_SECONDS", 5),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intDefault reads an integer environment variable, falling back to the
// given default when unset; an unparsable value is fatal.
func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
