package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-autopilot/framework/autopilot"
	"github.com/km-arc/go-autopilot/framework/autopilot/manifest"
)

// autopilot parse: print references in canonical form.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <reference>...",
		Short: "Print references in canonical Type{Config:Lifecycle} form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range args {
				ref, err := autopilot.Parse(s)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ref)
			}
			return nil
		},
	}
}

// autopilot check: validate a manifest and list what it declares.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest>",
		Short: "Validate a YAML manifest and list its aliases, setters and eager references",
		Long: "Check parses the manifest and validates every reference in it. It does not resolve anything: " +
			"whether the targets can be built depends on the providers of the application that loads it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "KIND\tREFERENCE\tTARGET")
			fmt.Fprintln(w, "----\t---------\t------")
			for _, a := range m.Aliases() {
				fmt.Fprintf(w, "alias\t%s\t%s\n", a.Abstract, a.Target)
			}

			setters := m.Setters()
			types := make([]string, 0, len(setters))
			for typeName := range setters {
				types = append(types, typeName)
			}
			sort.Strings(types)
			for _, typeName := range types {
				for _, call := range setters[typeName] {
					args := make([]string, len(call.Args))
					for i, a := range call.Args {
						args[i] = fmt.Sprint(a)
					}
					fmt.Fprintf(w, "setter\t%s\t%s(%s)\n", typeName, call.Method, strings.Join(args, ", "))
				}
			}

			for _, ref := range m.Eager() {
				fmt.Fprintf(w, "eager\t%s\t\n", ref)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", m.Source())
			return nil
		},
	}
}
