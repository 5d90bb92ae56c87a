package config

import (
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/spf13/viper"
)

// LogLevelHandler returns a handler that applies the level found at key to
// the global logger. An empty value leaves the level unchanged.
func LogLevelHandler(key string) ChangeHandler {
	return func(v *viper.Viper) error {
		raw := v.GetString(key)
		if raw == "" {
			return nil
		}
		lvl, err := core.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		logger.Global().SetLevel(lvl)
		logger.Infow("Log level updated", "level", lvl.String())
		return nil
	}
}
