// Package sync delivers rendered graphs to their destinations (local files,
// S3-compatible buckets, git repositories) and re-renders them on a schedule.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/issuegraph/internal/client"
	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/graph"
)

// Content types of the artifacts produced for one run.
const (
	ContentTypeDOT   = "text/vnd.graphviz"
	ContentTypeJSONL = "application/x-ndjson"
)

// Artifact is one file produced by a run.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Destination is the interface for a delivery target (file, S3, git).
type Destination interface {
	// Name identifies the destination kind in logs and events.
	Name() string
	// Write stores the artifact and returns where it ended up.
	Write(ctx context.Context, a Artifact) (location string, err error)
}

// Pusher writes a run's artifacts to every destination and announces them.
type Pusher struct {
	destinations []Destination
	publisher    events.Publisher
	snapshot     bool
	logger       *slog.Logger
}

// NewPusher creates a pusher. With snapshot set, a JSONL snapshot of the
// walked items accompanies each graph.
func NewPusher(destinations []Destination, publisher events.Publisher, snapshot bool, logger *slog.Logger) *Pusher {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pusher{destinations: destinations, publisher: publisher, snapshot: snapshot, logger: logger}
}

// Artifacts returns the files produced for g under the base name name.
func (p *Pusher) Artifacts(g *graph.Graph, name string) ([]Artifact, error) {
	out := []Artifact{{Name: name + ".dot", ContentType: ContentTypeDOT, Data: []byte(g.Text)}}
	if p.snapshot {
		var buf bytes.Buffer
		if err := ExportJSONL(&buf, g.Summary, g.Items, g.Depths); err != nil {
			return nil, err
		}
		out = append(out, Artifact{Name: name + ".jsonl", ContentType: ContentTypeJSONL, Data: buf.Bytes()})
	}
	return out, nil
}

// Push announces g and writes its artifacts to every destination. A failing
// destination does not stop the others; all failures are returned joined.
func (p *Pusher) Push(ctx context.Context, g *graph.Graph, name string) ([]string, error) {
	if err := p.publisher.Publish(ctx, events.TopicGraphRendered, events.GraphRendered{Summary: g.Summary}); err != nil {
		p.logger.Warn("publishing rendered event failed", "err", err)
	}

	artifacts, err := p.Artifacts(g, name)
	if err != nil {
		return nil, err
	}

	var (
		locations []string
		errs      []error
	)
	for _, dest := range p.destinations {
		for _, a := range artifacts {
			loc, err := dest.Write(ctx, a)
			if err != nil {
				p.logger.Error("destination write failed", "destination", dest.Name(), "artifact", a.Name, "err", err)
				errs = append(errs, fmt.Errorf("%s: %w", dest.Name(), err))
				continue
			}
			locations = append(locations, loc)
			stored := events.GraphStored{RunID: g.Summary.RunID, Destination: dest.Name(), Location: loc}
			if err := p.publisher.Publish(ctx, events.TopicGraphStored, stored); err != nil {
				p.logger.Warn("publishing stored event failed", "err", err)
			}
		}
	}
	return locations, errors.Join(errs...)
}

// Job describes what the scheduler renders on every tick.
type Job struct {
	Seeds    []string
	JQL      string
	Searcher client.Searcher // required when JQL is set

	// Name, when set, is a fixed artifact base name so each run overwrites
	// the previous one. Otherwise every run gets a timestamped name.
	Name string
}

// Scheduler re-renders a job periodically and pushes the result.
type Scheduler struct {
	renderer graph.Renderer
	pusher   *Pusher
	job      Job
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that renders job with renderer and hands
// the result to pusher at the specified interval.
func NewScheduler(renderer graph.Renderer, pusher *Pusher, job Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		renderer: renderer,
		pusher:   pusher,
		job:      job,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins periodic rendering. It renders once immediately, then on
// each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	// Run once immediately at startup.
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("graph run failed", "err", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("graph run failed", "err", err)
			}
		}
	}
}

// RunOnce resolves the job's seeds, renders and pushes one graph. Render
// failures are announced on the event bus.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	seeds, err := graph.ResolveSeeds(ctx, s.job.Searcher, s.job.Seeds, s.job.JQL)
	if err != nil {
		s.failed(ctx, s.job.Seeds, err)
		return err
	}
	g, err := s.renderer.Render(ctx, seeds)
	if err != nil {
		s.failed(ctx, seeds, err)
		return err
	}
	name := s.job.Name
	if name == "" {
		name = graph.OutputName(s.job.Seeds, s.job.JQL, s.now())
	}
	locations, err := s.pusher.Push(ctx, g, name)
	s.logger.Info("graph run completed", "run_id", g.Summary.RunID, "locations", len(locations), "bytes", g.Summary.Bytes)
	return err
}

func (s *Scheduler) failed(ctx context.Context, seeds []string, cause error) {
	ev := events.GraphFailed{Seeds: seeds, Error: cause.Error(), At: s.now().UTC()}
	if err := s.pusher.publisher.Publish(ctx, events.TopicGraphFailed, ev); err != nil {
		s.logger.Warn("publishing failed event failed", "err", err)
	}
}
