// Package config reads server settings from flags, the environment and an
// optional .env file. Flags win over the environment, and real environment
// variables win over .env.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/circulation"
)

// Config holds every server setting.
type Config struct {
	DBPath    string
	Addr      string
	AdminUser string
	LogPath   string

	Policy circulation.Policy

	RateLimit float64
	Burst     int
	TokenTTL  time.Duration
}

// Usage is printed for -h.
const Usage = `Usage: izposoja [flags]

Flags (environment variable in brackets):
  -d, -db <path>               SQLite database path [IZPOSOJA_DB] (default: izposoja.sqlite3)
  -a, -addr <host:port>        listen address [IZPOSOJA_ADDR] (default: :8080)
  -u, -user <name>             admin username on first run [IZPOSOJA_ADMIN] (default: Admin)
  -l, -log <path>              log file path [IZPOSOJA_LOG] (default: stdout/stderr only)
  -loan-days <n>               loan period in days [LOAN_PERIOD_DAYS] (default: 14)
  -renewal-days <n>            renewal period in days [RENEWAL_PERIOD_DAYS] (default: 14)
  -max-renewals <n>            renewals per loan [MAX_RENEWALS] (default: 2)
  -borrowing-limit <n>         loans per patron without a plan [DEFAULT_BORROWING_LIMIT] (default: 3)
  -allow-overdue-renewal       allow renewing overdue loans [ALLOW_OVERDUE_RENEWAL] (default: true)
  -rate <rps>                  requests per second per client, 0 disables [RATE_LIMIT_RPS] (default: 20)
  -burst <n>                   rate limit burst [RATE_LIMIT_BURST] (default: 40)
  -token-ttl <duration>        session token lifetime [IZPOSOJA_TOKEN_TTL] (default: 168h)
  -h, -help                    show this help and exit
`

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load parses args with defaults taken from the environment.
func Load(args []string, output io.Writer) (*Config, error) {
	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{}
	fset := flag.NewFlagSet("izposoja", flag.ContinueOnError)
	fset.SetOutput(output)
	fset.Usage = func() { fmt.Fprint(output, Usage) }

	dbDefault := env.str("IZPOSOJA_DB", "izposoja.sqlite3")
	fset.StringVar(&cfg.DBPath, "db", dbDefault, "")
	fset.StringVar(&cfg.DBPath, "d", dbDefault, "")

	addrDefault := env.str("IZPOSOJA_ADDR", ":8080")
	fset.StringVar(&cfg.Addr, "addr", addrDefault, "")
	fset.StringVar(&cfg.Addr, "a", addrDefault, "")

	userDefault := env.str("IZPOSOJA_ADMIN", "Admin")
	fset.StringVar(&cfg.AdminUser, "user", userDefault, "")
	fset.StringVar(&cfg.AdminUser, "u", userDefault, "")

	logDefault := env.str("IZPOSOJA_LOG", "")
	fset.StringVar(&cfg.LogPath, "log", logDefault, "")
	fset.StringVar(&cfg.LogPath, "l", logDefault, "")

	fset.IntVar(&cfg.Policy.LoanPeriodDays, "loan-days",
		env.integer("LOAN_PERIOD_DAYS", circulation.DefaultLoanPeriodDays), "")
	fset.IntVar(&cfg.Policy.RenewalPeriodDays, "renewal-days",
		env.integer("RENEWAL_PERIOD_DAYS", circulation.DefaultRenewalPeriodDays), "")
	fset.IntVar(&cfg.Policy.MaxRenewals, "max-renewals",
		env.integer("MAX_RENEWALS", circulation.DefaultMaxRenewals), "")
	fset.IntVar(&cfg.Policy.DefaultBorrowingLimit, "borrowing-limit",
		env.integer("DEFAULT_BORROWING_LIMIT", circulation.DefaultBorrowingLimit), "")
	fset.BoolVar(&cfg.Policy.AllowOverdueRenewal, "allow-overdue-renewal",
		env.boolean("ALLOW_OVERDUE_RENEWAL", circulation.DefaultAllowOverdueRenewal), "")

	fset.Float64Var(&cfg.RateLimit, "rate", env.float("RATE_LIMIT_RPS", 20), "")
	fset.IntVar(&cfg.Burst, "burst", env.integer("RATE_LIMIT_BURST", 40), "")
	fset.DurationVar(&cfg.TokenTTL, "token-ttl", env.duration("IZPOSOJA_TOKEN_TTL", auth.DefaultTTL), "")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that flag parsing cannot.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate must not be negative"))
	}
	if c.RateLimit > 0 && c.Burst < 1 {
		errs = append(errs, errors.New("burst must be at least 1"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token-ttl must be positive"))
	}
	return errors.Join(errs...)
}

// envReader reads typed environment defaults, collecting parse errors.
type envReader struct {
	errs *[]error
}

func (e envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func (e envReader) integer(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (e envReader) float(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (e envReader) boolean(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
