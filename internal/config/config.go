package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"authservice/internal/database"
)

const (
	StoreUser   = "user"
	StoreMemory = "memory"
	StoreDB     = "db"
	StoreMongo  = "mongo"
)

const (
	defaultAddr        = ":8082"
	defaultDriver      = database.DriverSQLite
	defaultDSN         = "file:authservice.db?_foreign_keys=on"
	defaultSessionName = "session_id"
	defaultMongoDBName = "authservice"
)

type Config struct {
	Addr            string
	DBDriver        string
	DBDSN           string
	SessionName     string
	SessionDuration time.Duration
	SessionStore    string
	MongoURI        string
	MongoDBName     string
	ExcludedPaths   []string
	LogFormat       string
	BcryptCost      int
}

func Default() *Config {
	return &Config{
		Addr:          defaultAddr,
		DBDriver:      defaultDriver,
		DBDSN:         defaultDSN,
		SessionName:   defaultSessionName,
		SessionStore:  StoreUser,
		MongoDBName:   defaultMongoDBName,
		ExcludedPaths: []string{"/api/v1/status/", "/api/v1/auth_session/login/"},
		LogFormat:     "text",
		BcryptCost:    bcrypt.DefaultCost,
	}
}

/*
Load reads envFile (when given) into the environment and builds the config from it.
Variables already present in the environment win over the file.
*/
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("env file %q: %w", envFile, err)
		}
	}

	cfg := Default()

	setString(&cfg.Addr, "ADDR")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DBDSN, "DB_DSN")
	setString(&cfg.SessionName, "SESSION_NAME")
	setString(&cfg.SessionStore, "SESSION_STORE")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDBName, "MONGO_DB_NAME")
	setString(&cfg.LogFormat, "LOG_FORMAT")

	if v, ok := os.LookupEnv("EXCLUDED_PATHS"); ok {
		cfg.ExcludedPaths = splitList(v)
	}

	if v := os.Getenv("SESSION_DURATION"); v != "" {
		// a non-integer duration disables expiry
		seconds, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || seconds < 0 {
			seconds = 0
		}
		cfg.SessionDuration = time.Duration(seconds) * time.Second
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = cost
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR is not set"))
	}
	if !database.Supported(c.DBDriver) {
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is not set"))
	}
	if c.SessionName == "" {
		errs = append(errs, errors.New("SESSION_NAME is not set"))
	}

	switch c.SessionStore {
	case StoreUser, StoreMemory, StoreDB:
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is not set"))
		}
		if c.MongoDBName == "" {
			errs = append(errs, errors.New("MONGO_DB_NAME is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE %q is not supported", c.SessionStore))
	}

	if c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d exceeds %d", c.BcryptCost, bcrypt.MaxCost))
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
