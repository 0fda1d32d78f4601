package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Secrets and identifiers are strings; the
// session keypair passphrase is kept separate from the JWT secret
// because they protect different things (private keys at rest versus
// purpose-bound tokens in flight).
type Config struct {
    Env           string // application environment (e.g. "dev", "prod")
    Port          string // HTTP port to listen on
    BaseURL       string // public origin used in emailed links
    DBUser        string // database username
    DBPass        string // database password (optional)
    DBHost        string // database host address
    DBPort        string // database port number
    DBName        string // database name
    JWTSecret     string // secret used to sign purpose-bound JWTs (cart, checkout, email flows)
    KeyPassphrase string // passphrase that seals session private keys at rest
    SMTPHost      string // SMTP server host (optional; mail disabled when empty)
    SMTPPort      int    // SMTP server port
    SMTPUser      string // SMTP username
    SMTPPass      string // SMTP password
    SMTPFrom      string // From address on outgoing mail
    StripeKey     string // Stripe secret API key
    Currency      string // ISO currency code charged by the payment provider
    GeminiKey     string // Gemini API key for the room suggester (optional)
    AMQPURL       string // RabbitMQ connection URL (optional; events disabled when empty)
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:           must("APP_ENV"),
        Port:          must("APP_PORT"),
        BaseURL:       os.Getenv("APP_BASE_URL"),
        DBUser:        must("DB_USER"),
        DBPass:        os.Getenv("DB_PASS"), // empty allowed
        DBHost:        must("DB_HOST"),
        DBPort:        must("DB_PORT"),
        DBName:        must("DB_NAME"),
        JWTSecret:     must("JWT_SECRET"),
        KeyPassphrase: must("KEY_PASSPHRASE"),
        SMTPHost:      os.Getenv("SMTP_HOST"),
        SMTPUser:      os.Getenv("SMTP_USER"),
        SMTPPass:      os.Getenv("SMTP_PASS"),
        SMTPFrom:      os.Getenv("SMTP_FROM"),
        StripeKey:     must("STRIPE_SECRET_KEY"),
        Currency:      os.Getenv("CURRENCY"),
        GeminiKey:     os.Getenv("GEMINI_API_KEY"),
        AMQPURL:       os.Getenv("AMQP_URL"),
    }
    if cfg.SMTPHost != "" {
        cfg.SMTPPort = mustInt("SMTP_PORT")
    }
    if cfg.Currency == "" {
        cfg.Currency = "usd"
    }
    if cfg.BaseURL == "" {
        cfg.BaseURL = "http://localhost:" + cfg.Port
    }
    return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error and
// exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
