// slightbackup/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	DataSource           string        `mapstructure:"DATA_SOURCE"`
	BackupDir            string        `mapstructure:"BACKUP_DIR"`
	BackupLifetime       time.Duration `mapstructure:"BACKUP_LIFETIME"`
	RecordLifetime       time.Duration `mapstructure:"RECORD_LIFETIME"`
	ThrottleFreeMem      int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk     int64         `mapstructure:"THROTTLE_FREEDISK"`
	DistinctCancellation bool          `mapstructure:"DISTINCT_CANCELLATION"`
	NotifyCmd            string        `mapstructure:"NOTIFY_CMD"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	RateLimit            float64       `mapstructure:"RATE_LIMIT"`
	RateBurst            int           `mapstructure:"RATE_BURST"`
	AuthEnable           bool          `mapstructure:"AUTH_ENABLE"`
	AuthKey              string        `mapstructure:"AUTH_KEY"`
	Port                 string        `mapstructure:"PORT"`
	BaseURL              string        `mapstructure:"BASE"`
}

// stringToDurationHookFunc parses Go duration strings such as "72h" or "0s".
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc parses human-readable size strings into int64 bytes.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(data.(string))); err != nil {
			// Not a size string, let the next hook or the default decoder try.
			return data, nil
		}
		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	vp.SetDefault("DATA_SOURCE", "slightbackup.db")
	vp.SetDefault("BACKUP_DIR", "backup")
	vp.SetDefault("BACKUP_LIFETIME", "0s")
	vp.SetDefault("RECORD_LIFETIME", "1h")
	vp.SetDefault("THROTTLE_FREEMEM", "50MB")
	vp.SetDefault("THROTTLE_FREEDISK", "50MB")
	vp.SetDefault("DISTINCT_CANCELLATION", false)
	vp.SetDefault("NOTIFY_CMD", "")
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("RATE_LIMIT", 1.0)
	vp.SetDefault("RATE_BURST", 5)
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "123456")
	vp.SetDefault("PORT", "8080")
	vp.SetDefault("BASE", "")

	vp.SetConfigName("slightbackup_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/slightbackup/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("SLIGHTBACKUP")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// Order matters: durations are int64 too, so they must be claimed first.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
