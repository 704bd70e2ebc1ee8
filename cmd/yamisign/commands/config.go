package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/chrono"
	"yamisign/lib/configutil"
	"yamisign/lib/forum"
	"yamisign/lib/telemetry"
	"yamisign/pkg/migrations"
	"yamisign/services/autosign"
	"yamisign/services/notify"

	"dario.cat/mergo"
)

type AutosignConfig struct {
	ScheduledTime string `json:"scheduled_time" yaml:"scheduled_time"`
	// CheckDelay is the number of seconds waited after every account.
	// The delays are pointers so an explicit 0 survives the defaults merge.
	CheckDelay *int `json:"check_delay" yaml:"check_delay"`
	MaxRetries int  `json:"max_retries" yaml:"max_retries"`
	// RetryDelay is the number of seconds between attempts.
	RetryDelay  *int   `json:"retry_delay" yaml:"retry_delay"`
	BatchSize   int    `json:"batch_size" yaml:"batch_size"`
	PollCeiling int    `json:"poll_ceiling" yaml:"poll_ceiling"`
	DigestCron  string `json:"digest_cron" yaml:"digest_cron"`
}

type NotifyConfig struct {
	Webhook notify.WebhookConfig `json:"webhook" yaml:"webhook"`
	Email   notify.EmailConfig   `json:"email" yaml:"email"`
}

type DatabaseConfig struct {
	migrations.Config
	// Namespace prefixes every key when the driver is redis.
	Namespace string `json:"namespace" yaml:"namespace"`
}

type Config struct {
	Timezone  string           `json:"timezone" yaml:"timezone"`
	Site      forum.Options    `json:"site" yaml:"site"`
	Database  DatabaseConfig   `json:"database" yaml:"database"`
	Autosign  AutosignConfig   `json:"autosign" yaml:"autosign"`
	Notify    NotifyConfig     `json:"notify" yaml:"notify"`
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

func seconds(d time.Duration) *int {
	s := int(d / time.Second)
	return &s
}

func duration(s *int) time.Duration {
	if s == nil {
		return 0
	}
	return time.Duration(*s) * time.Second
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Config: migrations.Config{
				Driver: "sqlite",
				File:   "yamisign.db",
			},
		},
		Autosign: AutosignConfig{
			ScheduledTime: "3:00:00",
			CheckDelay:    seconds(autosign.DefaultPerItemDelay),
			MaxRetries:    autosign.DefaultMaxRetries,
			RetryDelay:    seconds(autosign.DefaultRetryDelay),
			BatchSize:     autosign.DefaultBatchSize,
			PollCeiling:   int(autosign.DefaultPollCeiling / time.Second),
		},
	}
}

// readConfig reads the config file on top of the defaults. A missing file
// leaves every default in place.
func readConfig(path string) (Config, error) {
	config := defaultConfig()

	read, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return config, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// pointers set by the file are kept as is, even when they point to 0
	err = mergo.Merge(&read, config, mergo.WithoutDereference)
	if err != nil {
		return Config{}, fmt.Errorf("apply config defaults: %w", err)
	}
	return read, nil
}

func (c AutosignConfig) options() (autosign.Options, error) {
	tod, err := autosign.ParseTimeOfDay(c.ScheduledTime)
	if err != nil {
		return autosign.Options{}, err
	}
	return autosign.Options{
		ScheduledTime: tod,
		Run: autosign.RunOptions{
			PerItemDelay: duration(c.CheckDelay),
			MaxRetries:   c.MaxRetries,
			RetryDelay:   duration(c.RetryDelay),
			BatchSize:    c.BatchSize,
		},
		PollCeiling: time.Duration(c.PollCeiling) * time.Second,
		DigestCron:  c.DigestCron,
	}, nil
}

// app is everything a command needs, built from the config.
type app struct {
	config   Config
	tel      telemetry.API
	clock    chrono.StandardClock
	site     *forum.Site
	store    accounts.Store
	notifier autosign.Notifier
	close    func()
}

func openStore(ctx context.Context, config DatabaseConfig) (accounts.Store, func(), error) {
	switch config.Driver {
	case "redis":
		store, err := accounts.NewRedisStore(ctx, config.Url, config.Namespace)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, func() { store.Close() }, nil
	case "", "sqlite", "libsql":
		db, err := migrations.OpenAndMigrateDB(config.Config, accounts.Schema)
		if err != nil {
			return nil, nil, err
		}
		return accounts.NewSqliteStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", config.Driver)
	}
}

func newNotifier(config NotifyConfig, tel telemetry.API) (autosign.Notifier, error) {
	out := notify.Multi{notify.NewLogNotifier(nil)}
	if config.Webhook.Url != "" {
		webhook, err := notify.NewWebhookNotifier(config.Webhook, tel)
		if err != nil {
			return nil, err
		}
		out = append(out, webhook)
	}
	if config.Email.Server != "" {
		email, err := notify.NewEmailNotifier(config.Email)
		if err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, nil
}

func newApp(ctx context.Context) (app, error) {
	config, err := readConfig(*configPath)
	if err != nil {
		return app{}, err
	}

	tel := telemetry.SlogAPI{}

	clock, err := chrono.NewStandardClock(config.Timezone)
	if err != nil {
		return app{}, fmt.Errorf("load timezone: %w", err)
	}
	site, err := forum.NewSite(config.Site, tel)
	if err != nil {
		return app{}, err
	}
	store, closeStore, err := openStore(ctx, config.Database)
	if err != nil {
		return app{}, err
	}
	notifier, err := newNotifier(config.Notify, tel)
	if err != nil {
		closeStore()
		return app{}, err
	}

	return app{
		config:   config,
		tel:      tel,
		clock:    clock,
		site:     site,
		store:    store,
		notifier: notifier,
		close:    closeStore,
	}, nil
}

func (a app) authenticator() forum.Authenticator {
	return forum.NewAuthenticator(a.site, a.store, a.clock)
}

func (a app) service() (autosign.Service, error) {
	opts, err := a.config.Autosign.options()
	if err != nil {
		return autosign.Service{}, err
	}
	return autosign.NewService(
		a.store,
		forum.NewSigner(a.site),
		a.notifier,
		a.clock,
		a.tel,
		opts,
	), nil
}
