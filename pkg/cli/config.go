package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/lanlobby/lanlobby/pkg/config"
)

// loadConfig resolves the effective configuration: the --config flag
// when given, else lanlobby.yaml in the working directory when it
// exists, else built-in defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return config.Load(defaultConfigFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return config.Default(), nil
}
