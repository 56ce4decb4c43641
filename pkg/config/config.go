// Package config resolves toolchain settings from built-in defaults, an
// optional dotenv file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const DefaultEnvFile = ".gohack.env"

const (
	KeyBootstrap     = "GOHACK_BOOTSTRAP"
	KeyMaxSteps      = "GOHACK_MAX_STEPS"
	KeyStepsPerFrame = "GOHACK_STEPS_PER_FRAME"
	KeyScale         = "GOHACK_SCALE"
	KeyVerbose       = "GOHACK_VERBOSE"
	KeyTokensXML     = "GOHACK_TOKENS_XML"
)

type Config struct {
	// Bootstrap wraps translated VM code in the SP init, Sys.init call and
	// halt loop.
	Bootstrap bool
	// MaxSteps bounds headless runs. Zero or less means unbounded.
	MaxSteps      int
	StepsPerFrame int
	Scale         int
	Verbose       bool
	// TokensXML makes the analyzer also write <Name>T.xml token dumps.
	TokensXML bool
}

func Default() Config {
	return Config{
		Bootstrap:     true,
		MaxSteps:      10_000_000,
		StepsPerFrame: 20_000,
		Scale:         2,
	}
}

// Load reads envFile (DefaultEnvFile when empty) and then the process
// environment. A missing default file is ignored; a missing explicit file
// is an error.
func Load(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	fileVals, err := godotenv.Read(envFile)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: reading %s: %w", envFile, err)
		}
		fileVals = nil
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	})
}

// FromLookup applies every key that lookup reports on top of Default.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()

	bools := []struct {
		key string
		dst *bool
	}{
		{KeyBootstrap, &c.Bootstrap},
		{KeyVerbose, &c.Verbose},
		{KeyTokensXML, &c.TokensXML},
	}
	for _, b := range bools {
		raw, ok := lookup(b.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s=%q is not a boolean", b.key, raw)
		}
		*b.dst = v
	}

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{KeyMaxSteps, &c.MaxSteps, 0},
		{KeyStepsPerFrame, &c.StepsPerFrame, 1},
		{KeyScale, &c.Scale, 1},
	}
	for _, n := range ints {
		raw, ok := lookup(n.key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s=%q is not an integer", n.key, raw)
		}
		if v < n.min {
			return Config{}, fmt.Errorf("config: %s=%d must be at least %d", n.key, v, n.min)
		}
		*n.dst = v
	}

	return c, nil
}
