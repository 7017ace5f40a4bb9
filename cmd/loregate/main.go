// Package main implements the loregate CLI for reviewer operations against
// the loregated HTTP server.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fablesmith/loregate/internal/bulk"
	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/stats"
)

var (
	// serverURL is the base URL for the loregated HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loregate",
	Short: "CLI for the loregate verification gateway",
	Long: `loregate is a command-line interface for reviewing automatically extracted
story elements held by the loregated daemon. It lists the pending review
queue, shows per-series stats, and applies approve/reject/edit decisions
singly or in bulk.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8700", "loregated server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(editApproveCmd)
	rootCmd.AddCommand(bulkCmd(bulk.ActionApprove))
	rootCmd.AddCommand(bulkCmd(bulk.ActionReject))

	pendingCmd.Flags().String("type", "", "filter by item type")
	pendingCmd.Flags().String("status", "", "filter by status (default pending)")
	editApproveCmd.Flags().String("name", "", "replacement name")
	editApproveCmd.Flags().String("description", "", "replacement description")
	editApproveCmd.Flags().StringArray("detail", nil, "detail edit as key=value (repeatable)")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check loregated server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Status string `json:"status"`
		}
		if err := getJSON("/health", &resp); err != nil {
			return err
		}
		fmt.Printf("Server status: %s\n", resp.Status)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <series>",
	Short: "Show pending verification counts for a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var st stats.VerificationStats
		if err := getJSON(fmt.Sprintf("/api/v1/series/%s/stats", args[0]), &st); err != nil {
			return err
		}

		fmt.Printf("Series %s: %d pending\n", st.SeriesID, st.TotalPending)
		types := make([]string, 0, len(st.ByType))
		for itemType := range st.ByType {
			types = append(types, string(itemType))
		}
		sort.Strings(types)
		for _, itemType := range types {
			fmt.Printf("  %-14s %d\n", itemType, st.ByType[catalog.ItemType(itemType)])
		}
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending <series>",
	Short: "List the review queue for a series, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("/api/v1/series/%s/items", args[0])
		query := map[string]string{}
		if t, _ := cmd.Flags().GetString("type"); t != "" {
			query["type"] = t
		}
		if st, _ := cmd.Flags().GetString("status"); st != "" {
			query["status"] = st
		}

		var resp struct {
			Items []catalog.PendingItem `json:"items"`
		}
		if err := getJSONQuery(path, query, &resp); err != nil {
			return err
		}

		if len(resp.Items) == 0 {
			fmt.Println("No matching items.")
			return nil
		}
		for _, item := range resp.Items {
			confidence := "unscored"
			if item.Confidence != nil {
				confidence = fmt.Sprintf("%.2f", *item.Confidence)
			}
			fmt.Printf("%-14s %-36s %-10s conf=%-8s %s\n",
				item.Type, item.ID, item.Status, confidence, item.Name)
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <series> <type> <id>",
	Short: "Approve one pending item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], args[1], args[2], "approve", nil)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <series> <type> <id>",
	Short: "Reject one pending item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(args[0], args[1], args[2], "reject", nil)
	},
}

var editApproveCmd = &cobra.Command{
	Use:   "edit-approve <series> <type> <id>",
	Short: "Edit fields and approve in one atomic operation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		detailFlags, _ := cmd.Flags().GetStringArray("detail")

		patch, err := buildEditPatch(name, description, detailFlags)
		if err != nil {
			return err
		}
		if len(patch) == 0 {
			return fmt.Errorf("nothing to edit: pass --name, --description, or --detail")
		}
		return runTransition(args[0], args[1], args[2], "edit-approve", patch)
	},
}

func bulkCmd(action bulk.Action) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("bulk-%s <series> <type>", action),
		Short: fmt.Sprintf("Apply %s to every item of a type in a series", action),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/series/%s/bulk/%s", args[0], action)
			var result bulk.Result
			if err := postJSON(path, map[string]string{"type": args[1]}, nil, &result); err != nil {
				return err
			}

			fmt.Printf("Succeeded: %d\n", len(result.Succeeded))
			for _, id := range result.Succeeded {
				fmt.Printf("  %s\n", id)
			}
			if len(result.Failed) > 0 {
				fmt.Printf("Failed: %d\n", len(result.Failed))
				for _, failure := range result.Failed {
					fmt.Printf("  %s: %s\n", failure.ID, failure.Error)
				}
			}
			return nil
		},
	}
	return cmd
}

func runTransition(series, itemType, id, action string, body any) error {
	path := fmt.Sprintf("/api/v1/series/%s/items/%s/%s/%s", series, itemType, id, action)
	var item catalog.PendingItem
	if err := postJSON(path, nil, body, &item); err != nil {
		return err
	}
	fmt.Printf("%s/%s is now %s: %s\n", item.Type, item.ID, item.Status, item.Name)
	return nil
}
