package appw1temp

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jroedel/w1temp/foundation/ds18b20therm"
	"github.com/jroedel/w1temp/foundation/logger"
	"github.com/jroedel/w1temp/foundation/sqldb"
)

const EnvPrefix = "W1TEMP"

// configuration keys, also used in config files (db.driver is "db: driver:" in yaml)
const (
	KeyBasePath     = "base_path"
	KeyLogLevel     = "log_level"
	KeyLogFile      = "log_file"
	KeyDBDriver     = "db.driver"
	KeyDB           = "db.dsn"
	KeyTextfile     = "textfile"
	KeyMQTTBroker   = "mqtt.broker"
	KeyMQTTTopic    = "mqtt.topic"
	KeyMQTTUsername = "mqtt.username"
	KeyMQTTPassword = "mqtt.password"
	KeyMQTTRetained = "mqtt.retained"
	KeyJSON         = "json"
)

// flag name -> configuration key
var flagKeys = map[string]string{
	"base-path":   KeyBasePath,
	"log-level":   KeyLogLevel,
	"log-file":    KeyLogFile,
	"db-driver":   KeyDBDriver,
	"db":          KeyDB,
	"textfile":    KeyTextfile,
	"mqtt-broker": KeyMQTTBroker,
	"mqtt-topic":  KeyMQTTTopic,
	"json":        KeyJSON,
}

var configSearchPaths = []string{".", "$HOME/.config/w1temp", "/etc/w1temp"}

// dotEnvFile is loaded before anything else. Variables already set in the
// environment win.
var dotEnvFile = ".env"

type Config struct {
	BasePath string          `mapstructure:"base_path"`
	LogLevel logger.LogLevel `mapstructure:"log_level"`
	LogFile  string          `mapstructure:"log_file"`
	DB       DBConfig        `mapstructure:"db"`
	Textfile string          `mapstructure:"textfile"`
	MQTT     MQTTConfig      `mapstructure:"mqtt"`
	JSON     bool            `mapstructure:"json"`
}

// DBConfig selects the reading journal. The journal is off when DSN is empty.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// MQTTConfig is off when Broker is empty.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Retained bool   `mapstructure:"retained"`
}

// NewViper returns a viper instance with every key defaulted, so that
// environment variables are seen by Unmarshal.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBasePath, ds18b20therm.ThermometerDevicesRootPath)
	v.SetDefault(KeyLogLevel, string(logger.LogLevelWarn))
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDBDriver, sqldb.DriverSQLite)
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyTextfile, "")
	v.SetDefault(KeyMQTTBroker, "")
	v.SetDefault(KeyMQTTTopic, "w1temp")
	v.SetDefault(KeyMQTTUsername, "")
	v.SetDefault(KeyMQTTPassword, "")
	v.SetDefault(KeyMQTTRetained, false)
	v.SetDefault(KeyJSON, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the known flags present in fs to their configuration key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag --%s", name)
		}
	}
	return nil
}

// LoadConfig reads .env, then the config file, and returns the validated
// configuration. configFile may be empty, in which case w1temp.{yaml,toml,json}
// is searched for and is optional.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.Wrapf(err, "load %s", dotEnvFile)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("w1temp")
		for _, p := range configSearchPaths {
			v.AddConfigPath(p)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate user input
func (c Config) Validate() error {
	if !c.LogLevel.IsValid() {
		return errors.Errorf("log level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.DB.Driver != sqldb.DriverSQLite && c.DB.Driver != sqldb.DriverMySQL {
		return errors.Errorf("db driver must be %q or %q; got %q", sqldb.DriverSQLite, sqldb.DriverMySQL, c.DB.Driver)
	}
	if c.BasePath == "" {
		return errors.New("base path must not be empty")
	}
	if c.MQTT.Broker != "" && strings.TrimSpace(c.MQTT.Topic) == "" {
		return errors.New("an mqtt topic prefix is required when a broker is set")
	}
	return nil
}
