package config

import (
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	IsDebug *bool `yaml:"is_debug" env:"IS_DEBUG" env-default:"false"`
	Listen  struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5000"`
		TLS      bool   `yaml:"tls_enabled" env-default:"false"`
		CertFile string `yaml:"cert_file" env-default:""`
		KeyFile  string `yaml:"key_file" env-default:""`
	} `yaml:"listen"`
	Ocpi struct {
		Protocol         string `yaml:"protocol" env:"OCPI_PROTOCOL" env-default:"https"`
		Host             string `yaml:"host" env:"OCPI_HOST" env-default:"www.example.com"`
		Prefix           string `yaml:"prefix" env:"OCPI_PREFIX" env-default:"ocpi"`
		CountryCode      string `yaml:"country_code" env:"COUNTRY_CODE" env-default:"US"`
		PartyId          string `yaml:"party_id" env:"PARTY_ID" env-default:"NON"`
		PartyName        string `yaml:"party_name" env:"PARTY_NAME" env-default:"OCPI node"`
		Version          string `yaml:"version" env:"OCPI_VERSION" env-default:"2.2.1"`
		CommandAwaitTime int    `yaml:"command_await_time" env:"COMMAND_AWAIT_TIME" env-default:"5"`
		ProfileAwaitTime int    `yaml:"profile_await_time" env:"GET_ACTIVE_PROFILE_AWAIT_TIME" env-default:"5"`
		NoAuth           bool   `yaml:"no_auth" env:"NO_AUTH" env-default:"false"`
		LowercaseCI      bool   `yaml:"lowercase_ci" env:"CI_STRING_LOWERCASE_PREFERENCE" env-default:"true"`
	} `yaml:"ocpi"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"localhost"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env-default:""`
		Database string `yaml:"database" env-default:"ocpinode"`
	} `yaml:"mongo"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env-default:"9100"`
	} `yaml:"metrics"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	} `yaml:"telegram"`
	Pusher struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		AppID   string `yaml:"app_id" env-default:""`
		Key     string `yaml:"key" env-default:""`
		Secret  string `yaml:"secret" env-default:""`
		Cluster string `yaml:"cluster" env-default:""`
	} `yaml:"pusher"`
}

var instance *Config
var once sync.Once

func GetConfig() (*Config, error) {
	var err error
	once.Do(func() {
		log.Println("reading config")
		instance = &Config{}
		if err = cleanenv.ReadConfig("config.yml", instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			log.Println(desc)
			log.Println(err)
			instance = nil
		}
	})
	return instance, err
}
