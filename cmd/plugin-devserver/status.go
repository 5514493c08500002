package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the build status of every plugin on a running dev server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				serverURL = baseURL(root.v.GetString("addr"))
			}
			views, err := fetchPlugins(cmd.Context(), serverURL)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), views, time.Now())
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "dev server base URL (default from addr)")
	return cmd
}

// baseURL turns a listen address into a URL a local client can reach.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func fetchPlugins(ctx context.Context, base string) ([]plugin.View, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/plugins", nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact dev server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev server returned %s", resp.Status)
	}
	var body struct {
		Plugins []plugin.View `json:"plugins"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode plugin list: %w", err)
	}
	return body.Plugins, nil
}

func printStatus(w io.Writer, views []plugin.View, now time.Time) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No plugins registered.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVERSION\tSTATUS\tSIZE\tLAST BUILD\tERROR")
	for _, v := range views {
		last := "-"
		if v.LastBuildTime != nil {
			last = timeago.English.FormatReference(*v.LastBuildTime, now)
		}
		size := "-"
		if v.BundleSizeBytes > 0 {
			size = fmt.Sprintf("%.1f KiB", float64(v.BundleSizeBytes)/1024)
		}
		errText := firstLine(v.LastBuildError)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, orDash(v.Version), v.Status, size, last, orDash(errText))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
