package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"mikrotik-exporter/internal/roserr"
)

const (
	// DefaultServerAddr is used when SERVER_ADDR is unset (spec §6.1).
	DefaultServerAddr = "0.0.0.0:9090"

	// DefaultCollectionInterval and MinCollectionInterval bound
	// COLLECTION_INTERVAL_SECONDS.
	DefaultCollectionInterval = 30 * time.Second
	MinCollectionInterval     = 5 * time.Second

	// DefaultQueryTimeout is the per-collector call timeout (spec §4.6
	// step 4).
	DefaultQueryTimeout = 10 * time.Second

	// DefaultDialTimeout bounds TCP connect + login.
	DefaultDialTimeout = 5 * time.Second

	envServerAddr     = "SERVER_ADDR"
	envRoutersConfig  = "ROUTERS_CONFIG"
	envLegacyAddress  = "ROUTEROS_ADDRESS"
	envLegacyUsername = "ROUTEROS_USERNAME"
	envLegacyPassword = "ROUTEROS_PASSWORD"
	envCollectionSecs = "COLLECTION_INTERVAL_SECONDS"
	envLogLevel       = "LOG_LEVEL"
	envLogFormat      = "LOG_FORMAT"
	legacyRouterName  = "default"
)

// RouterSpec is one configured RouterOS target (spec §3, immutable
// after load).
type RouterSpec struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LogValue implements slog.LogValuer; the password never reaches a log
// line.
func (r RouterSpec) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", r.Name),
		slog.String("address", r.Address),
		slog.String("username", r.Username),
	)
}

// Config is the fully validated, process-lifetime configuration (spec
// §6.1).
type Config struct {
	ServerAddr         string
	Routers            []RouterSpec
	CollectionInterval time.Duration
	LogLevel           string
	LogFormat          string
}

// Load reads the recognized environment variables and produces a
// validated Config, or a *roserr.ConfigError describing every problem
// found (aggregated via multierror when there is more than one).
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var errs *multierror.Error

	routers, err := loadRouters(getenv)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	interval, err := loadCollectionInterval(getenv)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, &roserr.ConfigError{Detail: err.Error()}
	}

	serverAddr := getenv(envServerAddr)
	if serverAddr == "" {
		serverAddr = DefaultServerAddr
	}

	logFormat := getenv(envLogFormat)
	if logFormat == "auto" {
		logFormat = ""
	}

	return &Config{
		ServerAddr:         serverAddr,
		Routers:            routers,
		CollectionInterval: interval,
		LogLevel:           getenv(envLogLevel),
		LogFormat:          logFormat,
	}, nil
}

func loadRouters(getenv func(string) string) ([]RouterSpec, error) {
	if raw := getenv(envRoutersConfig); raw != "" {
		return parseRoutersJSON(raw)
	}

	address := getenv(envLegacyAddress)
	if address == "" {
		return nil, fmt.Errorf("no routers configured (set %s or %s)", envRoutersConfig, envLegacyAddress)
	}

	router := RouterSpec{
		Name:     legacyRouterName,
		Address:  address,
		Username: getenv(envLegacyUsername),
		Password: getenv(envLegacyPassword),
	}

	if err := validateRouter(router); err != nil {
		return nil, err
	}

	return []RouterSpec{router}, nil
}

func parseRoutersJSON(raw string) ([]RouterSpec, error) {
	var routers []RouterSpec
	if err := json.Unmarshal([]byte(raw), &routers); err != nil {
		return nil, fmt.Errorf("%s: %w", envRoutersConfig, err)
	}

	if len(routers) == 0 {
		return nil, fmt.Errorf("%s is an empty array", envRoutersConfig)
	}

	seen := make(map[string]struct{}, len(routers))

	var errs *multierror.Error

	for _, r := range routers {
		if err := validateRouter(r); err != nil {
			errs = multierror.Append(errs, err)

			continue
		}

		if _, dup := seen[r.Name]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate router name %q", r.Name))

			continue
		}

		seen[r.Name] = struct{}{}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return routers, nil
}

func validateRouter(r RouterSpec) error {
	if r.Name == "" {
		return fmt.Errorf("router has no name")
	}

	if r.Address == "" {
		return fmt.Errorf("router %q has no address", r.Name)
	}

	if _, _, err := net.SplitHostPort(r.Address); err != nil {
		return fmt.Errorf("router %q address %q must include a port: %w", r.Name, r.Address, err)
	}

	return nil
}

func loadCollectionInterval(getenv func(string) string) (time.Duration, error) {
	raw := getenv(envCollectionSecs)
	if raw == "" {
		return DefaultCollectionInterval, nil
	}

	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not an integer", envCollectionSecs, raw)
	}

	interval := time.Duration(secs) * time.Second
	if interval < MinCollectionInterval {
		return 0, fmt.Errorf("%s=%d is below the %s minimum", envCollectionSecs, secs, MinCollectionInterval)
	}

	return interval, nil
}
