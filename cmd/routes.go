package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/routestore"
)

// newRoutesCmd manages the route store directly. A running server only picks
// the changes up on its next reload, so prefer the HTTP API while it is up.
func newRoutesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect and edit stored proxy routes",
	}

	cmd.AddCommand(
		newRoutesListCmd(opts),
		newRoutesAddCmd(opts),
		newRoutesUpdateCmd(opts),
		newRoutesDeleteCmd(opts),
	)

	return cmd
}

func withStore(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, store routestore.Store) error) error {
	cfg, _, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := routestore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("opening route store: %w", err)
	}
	defer store.Close()

	return fn(ctx, store)
}

func newRoutesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store routestore.Store) error {
				routes, err := store.List(ctx)
				if err != nil {
					return err
				}
				return printRoutes(cmd, routes...)
			})
		},
	}
}

func newRoutesAddCmd(opts *rootOptions) *cobra.Command {
	var fields route.Fields

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, opts, func(ctx context.Context, store routestore.Store) error {
				created, err := store.Create(ctx, fields)
				if err != nil {
					return err
				}
				return printRoutes(cmd, created)
			})
		},
	}

	addFieldFlags(cmd, &fields)
	return cmd
}

func newRoutesUpdateCmd(opts *rootOptions) *cobra.Command {
	var fields route.Fields

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the hostname and target of a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, opts, func(ctx context.Context, store routestore.Store) error {
				updated, err := store.Update(ctx, id, fields)
				if err != nil {
					return err
				}
				return printRoutes(cmd, updated)
			})
		},
	}

	addFieldFlags(cmd, &fields)
	return cmd
}

func newRoutesDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, opts, func(ctx context.Context, store routestore.Store) error {
				if err := store.Delete(ctx, id); err != nil {
					return err
				}
				_, err := color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "deleted route %d\n", id)
				return err
			})
		},
	}
}

func addFieldFlags(cmd *cobra.Command, fields *route.Fields) {
	cmd.Flags().StringVar(&fields.Hostname, "hostname", "", "hostname to match, without port")
	cmd.Flags().StringVar(&fields.TargetURL, "target", "", "absolute http(s) URL to forward to")
	_ = cmd.MarkFlagRequired("hostname")
	_ = cmd.MarkFlagRequired("target")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid route id %q", raw)
	}
	return id, nil
}

func printRoutes(cmd *cobra.Command, routes ...route.Route) error {
	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	table.Header([]string{"ID", "HOSTNAME", "TARGET"})
	for _, rt := range routes {
		if err := table.Append([]string{strconv.FormatInt(rt.ID, 10), rt.Hostname, rt.TargetURL}); err != nil {
			return err
		}
	}
	return table.Render()
}
