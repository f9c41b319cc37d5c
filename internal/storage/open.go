package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/julianstephens/eyecare/internal/config"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/keyring"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/storage/postgres"
	"github.com/julianstephens/eyecare/internal/storage/sqlite"
)

// JSONPrefix selects the JSON file store, e.g. "json:~/eyecare.json".
const JSONPrefix = "json:"

// Where a store target came from
const (
	SourceExplicit = "flag"
	SourceEnv      = "env"
	SourceKeyring  = "keyring"
	SourceDefault  = "default"
)

// Target is a resolved store location.
type Target struct {
	Value  string
	Source string
}

// Kind names the backend the target selects.
func (t Target) Kind() string {
	switch {
	case strings.HasPrefix(t.Value, JSONPrefix):
		return "json"
	case postgres.IsConnString(t.Value):
		return "postgres"
	default:
		return "sqlite"
	}
}

// Seams for tests.
var (
	getenvFunc        = os.Getenv
	keyringLookupFunc = keyring.GetConnectionString
)

// Resolve picks the store location: an explicit value (flag or config
// file), then EYECARE_DB_CONNECTION, then the OS keyring, then the default
// sqlite path.
func Resolve(explicit string) Target {
	if v := strings.TrimSpace(explicit); v != "" {
		return Target{Value: v, Source: SourceExplicit}
	}
	if v := strings.TrimSpace(getenvFunc(constants.EnvDBConnection)); v != "" {
		return Target{Value: v, Source: SourceEnv}
	}
	v, err := keyringLookupFunc()
	switch {
	case err == nil && strings.TrimSpace(v) != "":
		return Target{Value: v, Source: SourceKeyring}
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		logger.Debug("Keyring lookup failed, falling back to default store", "error", err)
	}
	return Target{Value: constants.DefaultStorePath, Source: SourceDefault}
}

// Open builds the Provider for t without initialising or loading it.
// Explicit PostgreSQL targets must not embed a password; the environment
// and keyring are secret stores and may.
func Open(t Target) (Provider, error) {
	switch t.Kind() {
	case "json":
		path, err := config.ExpandPath(strings.TrimPrefix(t.Value, JSONPrefix))
		if err != nil {
			return nil, err
		}
		return NewJSONStore(path), nil
	case "postgres":
		if t.Source == SourceExplicit {
			if _, err := postgres.ValidateConnString(t.Value); err != nil {
				if errors.Is(err, postgres.ErrEmbeddedCredentials) {
					return nil, fmt.Errorf("%w: use %s, .pgpass or 'eyecare keyring set' instead", err, constants.EnvDBConnection)
				}
				return nil, err
			}
		}
		return postgres.New(t.Value), nil
	default:
		path, err := config.ExpandPath(t.Value)
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path), nil
	}
}

func sortDays(days []models.DayStats) {
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
}
