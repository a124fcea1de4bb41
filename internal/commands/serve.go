package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tvabook-dev/tvabook/internal/admin"
	"github.com/tvabook-dev/tvabook/internal/archive"
	"github.com/tvabook-dev/tvabook/internal/config"
	"github.com/tvabook-dev/tvabook/internal/importer"
	"github.com/tvabook-dev/tvabook/internal/pipeline"
	"github.com/tvabook-dev/tvabook/internal/server"
)

func newServeCommand() *cobra.Command {
	var workDir string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rule administration and processing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(workDir, addr)
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(workDir, addr string) error {
	absDir, cfg, store, err := loadWorkdir(workDir)
	if err != nil {
		return err
	}

	apiKey := config.LoadEnv(absDir)
	if apiKey == "" {
		return fmt.Errorf("%s is not set; refusing to serve without an API key", config.APIKeyEnv)
	}

	log := newLogger(cfg.LogLevel)

	arch, err := archive.Open(cfg.ArchiveFile)
	if err != nil {
		return err
	}
	defer arch.Close()

	svc := admin.NewService(store, arch, absDir, log)
	p := &pipeline.Pipeline{
		Registry: importer.DefaultRegistry(),
		Store:    store,
		Archive:  arch,
	}

	srv := server.New(server.Options{
		Admin:    svc,
		Archive:  arch,
		Pipeline: p,
		Accounts: cfg.Accounts,
		BasePath: cfg.BasePath,
		APIKey:   apiKey,
		Log:      log,
	})

	if addr == "" {
		addr = cfg.Server.Addr
	}
	log.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
