package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/evanlabs/checkerbot/bot"
	"github.com/evanlabs/checkerbot/checker"
	"github.com/evanlabs/checkerbot/core/bootstrap"
	corecmd "github.com/evanlabs/checkerbot/core/cmd"
	coreconfig "github.com/evanlabs/checkerbot/core/config"
	coredatabase "github.com/evanlabs/checkerbot/core/database"
	"github.com/evanlabs/checkerbot/mtclient"
	"github.com/evanlabs/checkerbot/session"
	"github.com/evanlabs/checkerbot/storage"
)

// appConfig aggregates core settings with the checker-specific sections.
type appConfig struct {
	Core       coreconfig.Config   `yaml:",inline"`
	Database   coredatabase.Config `yaml:"database"`
	Checker    checker.Config      `yaml:"checker"`
	Session    session.Config      `yaml:"session"`
	Gateway    mtclient.Config     `yaml:"gateway"`
	SupportURL string              `yaml:"support_url" envconfig:"SUPPORT_URL"`
}

// CoreConfig satisfies corecmd.ConfigCarrier.
func (c *appConfig) CoreConfig() *coreconfig.Config {
	return &c.Core
}

func loadConfig(path string) (corecmd.ConfigCarrier, error) {
	var cfg appConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := checker.Normalize(&cfg.Checker); err != nil {
		return nil, err
	}
	if err := session.NormalizeConfig(&cfg.Session); err != nil {
		return nil, err
	}
	if err := cfg.Gateway.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildApp(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*appConfig)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	return bot.New(bot.Options{
		Core:       &cfg.Core,
		Checker:    cfg.Checker,
		Session:    cfg.Session,
		Dialer:     mtclient.NewClient(cfg.Gateway),
		Usage:      storage.New(infra.DB),
		SupportURL: cfg.SupportURL,
	})
}

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        loadConfig,
		Bootstrap:         buildApp,
	})
	if err != nil {
		log.Fatalf("checkerbot: %v", err)
	}
}
