package app

import (
	"context"
	"sync"

	"github.com/spf13/viper"

	"github.com/tphakala/visits-go/internal/conf"
)

// Context carries configuration state between the root command and its
// subcommands. App is nil until Init runs.
type Context struct {
	Viper      *viper.Viper
	ConfigFile string
	// EnvFile is a dotenv file exported before settings load; empty means
	// an optional .env in the working directory.
	EnvFile  string
	Settings *conf.Settings
	App      *App

	closeOnce sync.Once
}

// NewContext returns a Context with a fresh viper instance.
func NewContext() *Context {
	return &Context{Viper: conf.NewViper()}
}

// LoadSettings reads configuration without starting any services.
func (c *Context) LoadSettings() error {
	if err := conf.LoadEnvFile(c.EnvFile); err != nil {
		return err
	}
	settings, err := conf.Load(c.Viper, c.ConfigFile)
	if err != nil {
		return err
	}
	c.Settings = settings
	return nil
}

// Init loads settings and starts the App.
func (c *Context) Init(ctx context.Context) error {
	if err := c.LoadSettings(); err != nil {
		return err
	}
	a, err := New(ctx, c.Settings)
	if err != nil {
		return err
	}
	c.App = a
	return nil
}

// Close shuts the App down once.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		if c.App != nil {
			c.App.Close()
		}
	})
}
