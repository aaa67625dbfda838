package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/dcpctl/internal/config"
	"github.com/danmuck/dcpctl/internal/dcp"
	"github.com/danmuck/dcpctl/internal/observability"
	"github.com/danmuck/dcpctl/internal/protocol/klv"
	"github.com/danmuck/dcpctl/internal/protocol/trace"
	"github.com/spf13/cobra"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the API commands known to this client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCommands(cmd.OutOrStdout())
		},
	}
}

func printCommands(w io.Writer) error {
	requests := dcp.Requests()
	for _, name := range requests.Names() {
		msg, err := requests.Get(name)
		if err != nil {
			return err
		}
		params := ""
		if fields := msg.FieldNames(); len(fields) > 0 {
			params = " <" + strings.Join(fields, "> <") + ">"
		}
		fmt.Fprintf(w, "%s  %s%s\n", msg.Key, msg.Name, params)
	}
	return nil
}

func newCallCmd(flags *rootFlags) *cobra.Command {
	var (
		sets       []string
		metricsOut string
	)
	cmd := &cobra.Command{
		Use:   "call <command> [args...]",
		Short: "Send one command and print the parsed response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := applyLogLevel(cfg); err != nil {
				return err
			}
			named, err := parseNamed(sets)
			if err != nil {
				return err
			}
			positional := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				positional = append(positional, a)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			err = runCall(ctx, cmd.OutOrStdout(), cfg, args[0], positional, named)
			if metricsOut != "" {
				err = errors.Join(err, observability.WriteTextfile(metricsOut))
			}
			return err
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "named argument as field=value (repeatable)")
	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write call metrics to this file in Prometheus text format")
	return cmd
}

func runCall(ctx context.Context, w io.Writer, cfg config.Client, name string, args []any, named map[string]any) error {
	client, err := dcp.Dial(ctx, cfg, observability.CallObserver{})
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Command(name, args, named)
	if err != nil {
		return err
	}
	printResult(w, res)
	if !dcp.CheckResponse(res) {
		return fmt.Errorf("%s: device reported failure", name)
	}
	return nil
}

func printResult(w io.Writer, res *klv.Result) {
	for _, key := range res.Keys() {
		v, _ := res.Get(key)
		fmt.Fprintf(w, "%s: %v\n", key, v)
	}
}

func parseNamed(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	named := make(map[string]any, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want field=value", s)
		}
		named[k] = v
	}
	return named, nil
}

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <hex>",
		Short: "Decode a captured frame into a labeled wire trace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(strings.Join(args, ""))
			frame, err := hex.DecodeString(raw)
			if err != nil {
				return fmt.Errorf("explain: invalid hex: %w", err)
			}
			out, err := trace.Explain(frame, dcp.Requests(), dcp.Responses())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or validate client config files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", cfg.Addr())
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
