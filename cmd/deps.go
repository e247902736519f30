package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/config"
	"github.com/ghostmonk/storyfeed/internal/feed"
	"github.com/ghostmonk/storyfeed/internal/identity"
	"github.com/ghostmonk/storyfeed/internal/logger"
)

// deps bundles the wired client-side subsystems a command needs: the
// stories client, the fetch controller, the mutator, and the identity
// reactor keeping the feed in step with credential changes.
type deps struct {
	cfg     *config.Config
	log     logger.Logger
	api     *client.Client
	feed    *feed.Controller
	mutator *feed.Mutator

	unbind  func()
	closers []func() error
}

func buildDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	provider, closer, err := buildProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	api := client.New(cfg.API.URL, provider, log, client.WithTimeout(cfg.API.Timeout))
	controller := feed.NewController(api, log)
	mutator := feed.NewMutator(api, provider, controller, log)

	reactor := identity.NewReactor(provider.Current(), controller, log)
	unbind := reactor.Bind(cmd.Context(), provider)

	d := &deps{
		cfg:     cfg,
		log:     log,
		api:     api,
		feed:    controller,
		mutator: mutator,
		unbind:  unbind,
	}
	if closer != nil {
		d.closers = append(d.closers, closer)
	}
	return d, nil
}

// buildProvider selects the credential source: a static token wins, then a
// watched token file, then self-minted service tokens, and finally
// anonymous access.
func buildProvider(cfg *config.Config, log logger.Logger) (identity.Provider, func() error, error) {
	switch {
	case cfg.API.Token != "":
		log.Debug("using static bearer token")
		return identity.NewStatic(cfg.API.Token), nil, nil

	case cfg.API.TokenFile != "":
		p := identity.NewFile(cfg.API.TokenFile, log)
		if err := p.Start(); err != nil {
			return nil, nil, fmt.Errorf("watch token file: %w", err)
		}
		log.Debug("watching token file", logger.String("path", cfg.API.TokenFile))
		return p, p.Close, nil

	case cfg.API.AuthSecret != "":
		log.Debug("minting service tokens", logger.String("subject", cfg.API.ServiceName))
		return identity.NewServiceToken(cfg.API.AuthSecret, cfg.API.ServiceName), nil, nil

	default:
		log.Debug("no credential configured, browsing anonymously")
		return identity.NewStatic(""), nil, nil
	}
}

func (d *deps) Close() {
	d.unbind()
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			d.log.Warn("closing dependency failed", logger.Error(err))
		}
	}
	_ = d.log.Sync()
}
