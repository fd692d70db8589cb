// Package auth resolves the archive credentials used for submissions.
//
// The package implements a resolution chain that checks sources in order
// of priority:
//  1. A process-wide in-memory override set by the entry layer
//  2. The ENA_USER and ENA_PASSWORD environment variables
//
// Submission code never reads the environment directly; everything goes
// through Resolve.
package auth

import (
	"fmt"
	"os"
	"sync"
)

// Environment variables holding the archive credentials.
const (
	UserEnv     = "ENA_USER"
	PasswordEnv = "ENA_PASSWORD"
)

// Credentials is a username/password pair for the archive.
type Credentials struct {
	Username string
	Password string
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// Source provides credentials. A source that has none returns an empty
// pair with a nil error.
type Source interface {
	Credentials() (Credentials, error)
	Name() string
}

type envSource struct{}

func (envSource) Credentials() (Credentials, error) {
	return Credentials{
		Username: os.Getenv(UserEnv),
		Password: os.Getenv(PasswordEnv),
	}, nil
}

func (envSource) Name() string {
	return fmt.Sprintf("environment variables %s/%s", UserEnv, PasswordEnv)
}

var (
	overrideMu  sync.Mutex
	override    Credentials
	overrideSet bool
)

// SetOverride installs a process-wide credential override. The entry
// layer uses this after an interactive login.
func SetOverride(username, password string) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	override = Credentials{Username: username, Password: password}
	overrideSet = true
}

// ClearOverride removes the process-wide override.
func ClearOverride() {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	override = Credentials{}
	overrideSet = false
}

type overrideSource struct{}

func (overrideSource) Credentials() (Credentials, error) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	if !overrideSet {
		return Credentials{}, nil
	}
	return override, nil
}

func (overrideSource) Name() string { return "in-memory override" }

// DefaultSources returns the default credential source chain.
func DefaultSources() []Source {
	return []Source{overrideSource{}, envSource{}}
}

// Resolve walks the default source chain and returns the first complete
// credential pair.
func Resolve() (Credentials, error) {
	return ResolveFromSources(DefaultSources())
}

// ResolveFromSources walks the given chain and returns the first
// complete credential pair.
func ResolveFromSources(sources []Source) (Credentials, error) {
	for _, src := range sources {
		creds, err := src.Credentials()
		if err != nil {
			return Credentials{}, fmt.Errorf("reading credentials from %s: %w", src.Name(), err)
		}
		if creds.Complete() {
			return creds, nil
		}
	}
	return Credentials{}, fmt.Errorf("no archive credentials found: set %s and %s", UserEnv, PasswordEnv)
}
