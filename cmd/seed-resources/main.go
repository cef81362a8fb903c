// Command seed-resources loads curated support resources from a YAML file
// into the store. It is the only path that creates resources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nancymuyeh/SafeSpace/internal/config"
	"github.com/nancymuyeh/SafeSpace/internal/di"
	"github.com/nancymuyeh/SafeSpace/internal/service"
)

// seedFile is the on-disk shape of the resources file.
type seedFile struct {
	Resources []service.CreateResourceInput `yaml:"resources"`
}

func loadSeedFile(path string) ([]service.CreateResourceInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sf.Resources) == 0 {
		return nil, fmt.Errorf("%s lists no resources", path)
	}
	return sf.Resources, nil
}

// resourceCreator is the part of the resource service the seeder needs.
type resourceCreator interface {
	CreateResource(ctx context.Context, in service.CreateResourceInput) error
}

// seed inserts every resource and stops at the first failure.
func seed(ctx context.Context, creator resourceCreator, resources []service.CreateResourceInput) (int, error) {
	for i, r := range resources {
		if err := creator.CreateResource(ctx, r); err != nil {
			return i, fmt.Errorf("resource %d (%q): %w", i, r.Title, err)
		}
	}
	return len(resources), nil
}

// serviceCreator adapts ResourceService to resourceCreator.
type serviceCreator struct {
	svc *service.ResourceService
}

func (c serviceCreator) CreateResource(ctx context.Context, in service.CreateResourceInput) error {
	_, err := c.svc.CreateResource(ctx, in)
	return err
}

func newRootCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "seed-resources",
		Short: "Insert curated support resources",
		Long: `Reads a YAML file with a top-level "resources" list and inserts each entry.
Configuration (database, cache) is read the same way as the API server, so the
resources cache entry is invalidated on the configured cache.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resources, err := loadSeedFile(file)
			if err != nil {
				return err
			}
			if dryRun {
				for _, r := range resources {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.Type, r.Title, r.URL)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			container, cleanup, err := di.InitializeContainer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := seed(cmd.Context(), serviceCreator{svc: container.Resources}, resources)
			container.Logger.Info("Seeded resources", zap.Int("count", n), zap.String("file", file))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d resources\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "config/resources.yaml", "resources YAML file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the resources without inserting them")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "seed-resources:", err)
		stop()
		os.Exit(1)
	}
}
