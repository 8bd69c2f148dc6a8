package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/client"
	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/dot"
	"github.com/alfredjeanlab/issuegraph/internal/store"
	"github.com/alfredjeanlab/issuegraph/internal/store/postgres"
	graphsync "github.com/alfredjeanlab/issuegraph/internal/sync"
)

// connFlags select where items come from.
type connFlags struct {
	user     string
	cookie   string
	insecure bool
	offline  bool
	record   bool
}

func (f *connFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.user, "user", "", "tracker user name (overrides ISSUEGRAPH_USER)")
	fs.StringVar(&f.cookie, "cookie", "", "JSESSIONID session cookie instead of basic auth")
	fs.BoolVar(&f.insecure, "insecure", false, "skip TLS certificate verification")
	fs.BoolVar(&f.offline, "offline", false, "read items from the PostgreSQL mirror instead of the tracker")
	fs.BoolVar(&f.record, "record", false, "save fetched items into the PostgreSQL mirror")
}

// itemSource is an opened item source with its optional search backend.
type itemSource struct {
	store.Source
	searcher client.Searcher
	closers  []func() error
}

func (s *itemSource) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			logger.Warn("closing source", "err", err)
		}
	}
}

// openSource connects to the tracker or the mirror according to flags and
// the loaded configuration.
func openSource(c *config.Config, f connFlags) (*itemSource, error) {
	if f.user != "" {
		c.User = f.user
	}
	if f.cookie != "" {
		c.Cookie = f.cookie
	}
	if f.insecure {
		c.Insecure = true
	}

	if f.offline {
		if c.DatabaseURL == "" {
			return nil, errors.New("--offline requires ISSUEGRAPH_DATABASE_URL")
		}
		mirror, err := postgres.New(c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &itemSource{Source: mirror, closers: []func() error{mirror.Close}}, nil
	}

	if c.URL == "" {
		return nil, errors.New("no tracker URL: set ISSUEGRAPH_URL or add a profile")
	}
	hc := client.NewHTTPClient(c.URL, client.Auth{User: c.User, Password: c.Token, Cookie: c.Cookie}, c.Insecure)
	src := &itemSource{Source: hc, searcher: hc, closers: []func() error{hc.Close}}

	if f.record {
		if c.DatabaseURL == "" {
			src.Close()
			return nil, errors.New("--record requires ISSUEGRAPH_DATABASE_URL")
		}
		mirror, err := postgres.New(c.DatabaseURL)
		if err != nil {
			src.Close()
			return nil, err
		}
		src.Source = postgres.NewRecorder(hc, mirror, logger)
		src.closers = append(src.closers, mirror.Close)
	}
	return src, nil
}

// newStyler compiles the graph configuration into a styler linking into the
// tracker's web UI.
func newStyler(c *config.Config, path string, label dot.LabelOptions) (*dot.Styler, error) {
	if path == "" {
		path = c.GraphConfig
	}
	gc, err := config.LoadGraphConfig(path)
	if err != nil {
		return nil, err
	}
	styler := &dot.Styler{Styles: config.Compile(gc), Label: label}
	if c.URL != "" {
		styler.Links = dot.WebLinker{BaseURL: c.URL}
	}
	return styler, nil
}

// remoteDestinations returns the S3 and git destinations the configuration
// enables.
func remoteDestinations(ctx context.Context, c *config.Config) ([]graphsync.Destination, error) {
	var dests []graphsync.Destination
	if c.S3Bucket != "" {
		s3Dest, err := graphsync.NewS3Destination(ctx, c.S3Bucket, c.S3Prefix, c.S3Region, c.S3Endpoint)
		if err != nil {
			return nil, fmt.Errorf("creating S3 destination: %w", err)
		}
		dests = append(dests, s3Dest)
		logger.Info("S3 destination enabled", "bucket", c.S3Bucket, "prefix", c.S3Prefix)
	}
	if c.GitRepo != "" {
		dests = append(dests, graphsync.NewGitDestination(c.GitRepo, "", c.GitBranch))
		logger.Info("git destination enabled", "repo", c.GitRepo, "branch", c.GitBranch)
	}
	return dests, nil
}
