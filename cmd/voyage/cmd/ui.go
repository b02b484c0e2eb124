package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/index"
	"github.com/abramin/voyage/internal/project"
	"github.com/abramin/voyage/internal/server"
	"github.com/abramin/voyage/internal/store"
	"github.com/abramin/voyage/internal/watch"
)

var (
	uiPort  int
	uiWatch bool
)

var uiCmd = &cobra.Command{
	Use:   "ui [path]",
	Short: "Start the Voyage UI server",
	Long: `Start a local HTTP server that serves the Voyage UI and JSON API.

Projects indexed with "voyage index" are loaded from .voyage/catalog.db.
The demo project is always available. With --watch the catalog dirs are
watched and the catalog project is reloaded when definitions change; its
graph is rebuilt when it is the active project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		idx := index.NewIndexer(cfg, pathArg(args, 0), logger)

		st, err := store.Open(idx.StoreDir())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		projects := project.NewManager(graph.NewService(logger), logger)
		if err := projects.LoadStored(st); err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = uiPort
		}
		srv, err := server.New(server.Config{
			Port:     port,
			App:      cfg,
			Projects: projects,
			Store:    st,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		active := activeProject(st, projects)
		if _, err := projects.Activate(active); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if uiWatch || cfg.Watch.Enabled {
			w := watch.New(cfg, projects, logger, idx.CatalogDirs()...)
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer w.Close()
		}

		fmt.Printf("Starting Voyage UI on http://localhost:%d\n", srv.Port())
		return srv.Start(ctx)
	},
}

// activeProject picks the last activated project, then the configured one,
// then the demo.
func activeProject(st *store.Store, projects *project.Manager) string {
	registered := make(map[string]bool)
	for _, p := range projects.Projects() {
		registered[p.ID] = true
	}

	id, err := st.GetMetadata(store.MetaActiveProject)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Warn("reading active project", "error", err)
	}
	if registered[id] {
		return id
	}
	if id := GetConfig().Catalog.ProjectID; registered[id] {
		return id
	}
	return catalog.DemoProjectID
}

func init() {
	rootCmd.AddCommand(uiCmd)
	uiCmd.Flags().IntVarP(&uiPort, "port", "p", 8080, "port to run the UI server on")
	uiCmd.Flags().BoolVar(&uiWatch, "watch", false, "rebuild the graph when catalog files change")
}
