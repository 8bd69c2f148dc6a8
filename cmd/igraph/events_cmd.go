package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/events"
	"github.com/alfredjeanlab/issuegraph/internal/ui"
)

var eventsRaw bool

var eventsCmd = &cobra.Command{
	Use:   "events [topic]",
	Short: "Print graph run events as they are published",
	Long: `Print graph run events from NATS as they are published. The topic
defaults to every issuegraph topic and accepts NATS wildcards.`,
	GroupID: "system",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return errors.New("ISSUEGRAPH_NATS_URL is not set")
		}
		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		topic := events.TopicAll
		if len(args) == 1 {
			topic = args[0]
		}
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()

		logger.Info("listening for events", "nats_url", cfg.NATSURL, "topic", topic)
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(cmd.OutOrStdout(), msg.Topic, msg.Data, eventsRaw)
			}
		}
	},
}

func printEvent(w io.Writer, topic string, data []byte, raw bool) {
	if raw {
		fmt.Fprintf(w, "%s\n", data)
		return
	}
	name := ui.RenderAccent(topic)
	if topic == events.TopicGraphFailed {
		name = ui.RenderError(topic)
	}
	fmt.Fprintf(w, "%s %s\n", name, data)
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsRaw, "raw", false, "print payloads only")
}
