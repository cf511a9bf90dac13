package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"metalwatch/pkg/metalwatch"
)

type clientFunc func() *metalwatch.Client

func listCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every metal with its cached price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metals, err := client().Metals(cmd.Context())
			if err != nil {
				return err
			}
			return printMetals(cmd.OutOrStdout(), metals)
		},
	}
}

func printMetals(w io.Writer, metals []metalwatch.Metal) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tVISIBLE\tKIND")
	for _, m := range metals {
		price := "..."
		if m.Price != nil {
			price = *m.Price + "$"
		}
		shown := ""
		if m.Visible {
			shown = "yes"
		}
		kind := "built-in"
		if m.Custom {
			kind = "custom"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, price, shown, kind)
	}
	return tw.Flush()
}

func showCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Add a metal to the visible set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visible, err := client().Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "visible: %s\n", strings.Join(visible, ", "))
			return nil
		},
	}
}

func hideCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "hide <id>",
		Short: "Remove a metal from the visible set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visible, err := client().Hide(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "visible: %s\n", strings.Join(visible, ", "))
			return nil
		},
	}
}

func addCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a custom metal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := client().AddMetal(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", id)
			return nil
		},
	}
}

func removeCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a custom metal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().RemoveMetal(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func refreshCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch every price now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client().Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "refresh started")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "metalwatch-cli %s\n", version)
		},
	}
}
