package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	graphsync "github.com/alfredjeanlab/issuegraph/internal/sync"
	"github.com/alfredjeanlab/issuegraph/internal/ui"
)

var (
	graphOpts     graphFlags
	graphConn     connFlags
	graphJQL      string
	graphLocal    bool
	graphPush     bool
	graphSnapshot bool
)

var graphCmd = &cobra.Command{
	Use:   "graph [seed...]",
	Short: "Render the dependency graph of one or more items",
	Long: `Render the dependency graph reachable from the given items as Graphviz DOT.

Seeds are item keys; --jql adds every item the query matches. The special
seed "color-demo" draws one chain per configured workflow instead.

By default the graph is written to $ISSUEGRAPH_OUT_DIR as
<name>.graph.<timestamp>.dot; --local prints it to stdout instead.`,
	Example: `  igraph graph PROJ-12 -d 2 --include-labels
  igraph graph --jql 'project = PROJ AND sprint in openSprints()' --employ-subgraphs
  igraph graph PROJ-12 --local | dot -Tsvg > proj-12.svg`,
	GroupID: "graph",
	RunE:    runGraph,
}

func init() {
	graphOpts.register(graphCmd)
	graphConn.register(graphCmd)
	graphCmd.Flags().StringVar(&graphJQL, "jql", "", "seed the graph with every item this query matches")
	graphCmd.Flags().BoolVar(&graphLocal, "local", false, "print the graph to stdout instead of writing a file")
	graphCmd.Flags().BoolVar(&graphPush, "push", false, "also push the graph and a JSONL snapshot to the configured S3/git destinations")
	graphCmd.Flags().BoolVar(&graphSnapshot, "snapshot", false, "write a JSONL snapshot of the walked items next to the graph")
}

func runGraph(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && graphJQL == "" {
		return errors.New("at least one seed or --jql is required")
	}
	opts, label, err := graphOpts.options(os.Args[1:])
	if err != nil {
		return err
	}

	src, err := openSource(cfg, graphConn)
	if err != nil {
		return err
	}
	defer src.Close()

	styler, err := newStyler(cfg, graphOpts.graphConfig, label)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	seeds, err := graph.ResolveSeeds(ctx, src.searcher, args, graphJQL)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("query %q matched no items", graphJQL)
	}

	g, err := graph.New(src, styler, opts, logger).Render(ctx, seeds)
	if err != nil {
		return err
	}

	if graphLocal {
		_, err := fmt.Fprint(cmd.OutOrStdout(), g.Text)
		return err
	}

	dests := []graphsync.Destination{graphsync.NewFileDestination(cfg.OutDir)}
	if graphPush {
		remote, err := remoteDestinations(ctx, cfg)
		if err != nil {
			return err
		}
		if len(remote) == 0 {
			return errors.New("--push requires ISSUEGRAPH_S3_BUCKET or ISSUEGRAPH_GIT_REPO")
		}
		dests = append(dests, remote...)
	}

	publisher, err := events.NewPublisher(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pusher := graphsync.NewPusher(dests, publisher, graphPush || graphSnapshot, logger)
	name := graph.OutputName(args, graphJQL, g.Summary.RenderedAt.Local())
	locations, err := pusher.Push(ctx, g, name)
	for _, loc := range locations {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.FormatSummary(loc, g.Summary))
	}
	return err
}
