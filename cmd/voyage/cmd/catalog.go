package cmd

import (
	"context"
	"fmt"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/index"
)

// loadGraph builds the graph of the catalog below path, or of the demo
// project when demo is set.
func loadGraph(ctx context.Context, path string, demo bool) (*graph.Graph, error) {
	if demo {
		return graph.Build(logger, catalog.ExampleServices()), nil
	}

	idx := index.NewIndexer(GetConfig(), path, logger)
	services, err := catalog.NewLoader(GetConfig(), logger, idx.CatalogDirs()...).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return graph.Build(logger, services), nil
}

func pathArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}
