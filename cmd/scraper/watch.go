package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"novelhub/internal/events"
)

// newWatchCmd follows the API server's TCP event feed, reconnecting until
// interrupted.
func newWatchCmd() *cobra.Command {
	var (
		addr   string
		runID  string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print run events from the API server's TCP feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			for {
				if err := follow(ctx, addr, runID, pretty, cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "disconnected: %v\n", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "event feed address")
	cmd.Flags().StringVar(&runID, "run", "", "only show events of this run id")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "indent JSON events")
	return cmd
}

func follow(ctx context.Context, addr, runID string, pretty bool, out io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if runID != "" {
		line, err := filterLine(runID)
		if err != nil {
			return err
		}
		if _, err := conn.Write(line); err != nil {
			return fmt.Errorf("send filter: %w", err)
		}
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		fmt.Fprintln(out, formatEvent(sc.Bytes(), pretty))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// filterLine is the subscription filter the event feed reads from
// subscribers.
func filterLine(runID string) ([]byte, error) {
	b, err := json.Marshal(events.Filter{RunID: runID})
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func formatEvent(line []byte, pretty bool) string {
	if !pretty {
		return string(line)
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		return string(line)
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return string(line)
	}
	return string(b)
}
