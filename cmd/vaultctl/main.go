package main

import (
	"context"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/afero"

	"docvault/internal/apiclient"
	"docvault/internal/auth"
	"docvault/internal/cli"
	"docvault/internal/config"
	"docvault/internal/docstore"
)

func main() {
	cfg := config.Load()
	logger := cli.NewLogger(os.Stderr)

	deps := &cli.Deps{
		Fs:          afero.NewOsFs(),
		SessionPath: cli.DefaultSessionPath(),
		Config:      cfg,
		Verifier: auth.FixedCredentials{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
			Email:    cfg.Auth.Email,
		},
		Prompter: cli.HuhPrompter{},
		Logger:   logger,
		NewAPI: func(baseURL string) docstore.API {
			return apiclient.New(baseURL, cfg.Web.HTTPTimeout)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand(deps).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
