package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/birbparty/birb-baas/sdk"
)

type sessionEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	At    time.Time   `json:"at"`
}

func newWatchCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print session events until interrupted",
		Long: `watch prints token and user changes as they happen. With --events nats it
also shows the changes made by every other client sharing the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := make(chan sessionEvent, 16)
			for _, name := range []string{sdk.EventTokenUpdated, sdk.EventTokenExpired, sdk.EventUserUpdated} {
				c.app.Events().AddEvent(name, func(data interface{}) {
					select {
					case events <- sessionEvent{Event: name, Data: data, At: time.Now().UTC()}:
					default:
						c.log.WithField("event", name).Warn("Dropped session event, printer is behind")
					}
				})
			}

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev := <-events:
					if err := c.printJSON(ev); err != nil {
						return err
					}
				}
			}
		},
	}
}
