package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
	graphsync "github.com/alfredjeanlab/issuegraph/internal/sync"
)

var (
	watchOpts     graphFlags
	watchConn     connFlags
	watchJQL      string
	watchInterval time.Duration
	watchName     string
	watchSnapshot bool
	watchOnce     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [seed...]",
	Short: "Re-render a graph periodically and deliver it to the destinations",
	Long: `Re-render the graph of the given seeds (and --jql matches, re-evaluated on
every run) at a fixed interval. Each run is written to $ISSUEGRAPH_OUT_DIR and
to the S3 bucket and git repository configured in the environment, and
announced on NATS when ISSUEGRAPH_NATS_URL is set.`,
	GroupID: "graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && watchJQL == "" {
			return errors.New("at least one seed or --jql is required")
		}
		interval := watchInterval
		if interval == 0 {
			interval = cfg.RefreshInterval
		}
		if interval <= 0 && !watchOnce {
			return errors.New("refresh interval must be positive")
		}

		opts, label, err := watchOpts.options(os.Args[1:])
		if err != nil {
			return err
		}
		src, err := openSource(cfg, watchConn)
		if err != nil {
			return err
		}
		defer src.Close()
		styler, err := newStyler(cfg, watchOpts.graphConfig, label)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		remote, err := remoteDestinations(ctx, cfg)
		if err != nil {
			return err
		}
		dests := append([]graphsync.Destination{graphsync.NewFileDestination(cfg.OutDir)}, remote...)

		publisher, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		pipeline := graph.New(src, styler, opts, logger)
		pusher := graphsync.NewPusher(dests, publisher, watchSnapshot, logger)
		job := graphsync.Job{Seeds: args, JQL: watchJQL, Searcher: src.searcher, Name: watchName}
		scheduler := graphsync.NewScheduler(pipeline, pusher, job, interval, logger)

		if watchOnce {
			return scheduler.RunOnce(ctx)
		}

		scheduler.Start()
		logger.Info("watch started", "interval", interval, "destinations", len(dests))
		<-ctx.Done()
		scheduler.Stop()
		logger.Info("watch stopped")
		return nil
	},
}

func init() {
	watchOpts.register(watchCmd)
	watchConn.register(watchCmd)
	watchCmd.Flags().StringVar(&watchJQL, "jql", "", "seed every run with the items this query matches")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between runs (default $ISSUEGRAPH_REFRESH_INTERVAL)")
	watchCmd.Flags().StringVar(&watchName, "name", "", "fixed output name so each run replaces the last")
	watchCmd.Flags().BoolVar(&watchSnapshot, "snapshot", true, "deliver a JSONL snapshot of the walked items with each graph")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run once and exit")
}
