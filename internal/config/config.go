package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/imtaco/watch-party/internal/errors"
)

const ErrLoad errors.Code = "config_load"

// fileKey names an optional yaml/json/toml file layered under the environment.
const fileKey = "config_file"

func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load registers defaults through configure, then reads the optional config file
// (CONFIG_FILE) and the environment into c. Env keys are the upper-cased dotted
// keys with dots replaced by underscores, e.g. GATEWAY_EVENT_RATE.
func Load[T any](c *T, configure func(v *viper.Viper)) (*T, error) {
	v := NewViper()
	v.SetDefault(fileKey, "")
	configure(v)

	if file := v.GetString(fileKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(ErrLoad, err, "read %s", file)
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(ErrLoad, err, "unmarshal")
	}
	return c, nil
}
