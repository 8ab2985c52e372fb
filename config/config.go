package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tcriess/lightspeed-queue/globals"
)

const (
	defaultRoomCode   = "LOBBY"
	defaultRoomName   = "Office Hours"
	defaultCodeLength = 6
	// excludes 0/O, 1/I and other characters commonly confused when read
	// aloud or handwritten
	defaultCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Config is the global configuration object which is filled via the configuration file.
type Config struct {
	RoomsConfig       RoomsConfig       `mapstructure:"rooms"`
	IdentityConfig    IdentityConfig    `mapstructure:"identity"`
	NotifierConfig    NotifierConfig    `mapstructure:"notifier"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	OIDCConfigs       []OIDCConfig      `mapstructure:"oidc"`
	LogLevel          string            `mapstructure:"log_level"`
	AdminToken        string            `mapstructure:"admin_token"`
}

// RoomsConfig configures room code generation and the well-known default room
// that is guaranteed to exist at startup.
type RoomsConfig struct {
	CodeAlphabet    string `mapstructure:"code_alphabet"`
	CodeLength      int    `mapstructure:"code_length"`
	DefaultRoomCode string `mapstructure:"default_room_code"`
	DefaultRoomName string `mapstructure:"default_room_name"`
}

// IdentityConfig configures contact fingerprinting. If Secret is empty, a
// random per-process key is used, which is fine for duplicate detection but
// means fingerprints are not comparable across restarts.
type IdentityConfig struct {
	Secret string `mapstructure:"secret"`
}

// NotifierConfig configures outbound notification delivery and the two
// independent trigger hooks. The provider-specific settings are passed on as
// a raw map and decoded by the notify package.
type NotifierConfig struct {
	Provider       string                 `mapstructure:"provider"`
	NotifyOnServe  bool                   `mapstructure:"notify_on_serve"`
	NotifyOnRemove bool                   `mapstructure:"notify_on_remove"`
	RawConfig      map[string]interface{} `mapstructure:",remain"`
}

// An OIDCConfig object configures an OpenID Connect provider that is used to authorize
// room creation. Callers provide an ID token and the name of the provider, the
// authorization is then performed via verification of the token.
type OIDCConfig struct {
	Name        string `mapstructure:"name"`
	ClientId    string `mapstructure:"client_id"`
	ProviderUrl string `mapstructure:"provider_url"` // f.e. "https://accounts.google.com", this is used to construct the discovery url and subsequently discover the openid endpoints
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PersistenceConfig configures the persistence backends. Currently BuntDB
// ("buntdb") and Gorm ("sqlite" / "postgres") are supported. An empty type
// disables persistence, the service then runs purely in memory.
type PersistenceConfig struct {
	Type      string `mapstructure:"type"`
	DSN       string `mapstructure:"dsn"`
	FlockPath string `mapstructure:"flock_path"` // lock file guarding the buntdb store

	SQLiteConfig   SQLiteConfig   `mapstructure:"sqlite"`   // deprecated
	PostgresConfig PostgresConfig `mapstructure:"postgres"` // deprecated
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("admin-token", "t", "", "static bearer token authorizing room creation")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either point to a single TOML
// file or to a directory, in which case all *.toml files in this directory are concatenated. It returns a Config
// object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("rooms.code_alphabet", defaultCodeAlphabet)
	viper.SetDefault("rooms.code_length", defaultCodeLength)
	viper.SetDefault("rooms.default_room_code", defaultRoomCode)
	viper.SetDefault("rooms.default_room_name", defaultRoomName)
	viper.SetDefault("notifier.notify_on_remove", true)
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("LSQUEUE")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}

	globals.AppLogger.Debug("config", "cfg", cfg)
	return &cfg, nil
}
