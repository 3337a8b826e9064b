package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/habiliai/personachat/chat"
	"github.com/habiliai/personachat/config"
	"github.com/habiliai/personachat/errors"
	"github.com/habiliai/personachat/internal/mylog"
	"github.com/habiliai/personachat/persona"
	"github.com/jcooky/go-din"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "personachat",
		Short:         "Persona-switching chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newHistoryCmd(),
		newPersonasCmd(),
	)

	return cmd
}

func newServeCmd() *cobra.Command {
	params := &struct {
		Port int
	}{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c := din.NewContainer(ctx, din.EnvProd)
			defer c.Close()

			conf, err := din.GetT[*config.Config](c)
			if err != nil {
				return err
			}
			logger, err := din.Get[*slog.Logger](c, mylog.Key)
			if err != nil {
				return err
			}

			port := conf.Server.Port
			if cmd.Flags().Changed("port") {
				port = params.Port
			}

			s, err := newServer(c)
			if err != nil {
				return err
			}

			return serve(ctx, logger, net.JoinHostPort(conf.Server.Host, strconv.Itoa(port)), s.Handler())
		},
	}

	cmd.Flags().IntVarP(&params.Port, "port", "p", 8000, "Port to listen on (overrides PORT)")

	return cmd
}

func newChatCmd() *cobra.Command {
	params := &struct {
		UserID string
		Thread string
	}{}
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			service, err := din.GetT[*chat.Service](c)
			if err != nil {
				return err
			}

			resp, err := service.Handle(c, chat.HandleRequest{
				UserID:     params.UserID,
				Message:    args[0],
				ThreadName: params.Thread,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s #%d]\n", resp.ThreadName, resp.ThreadID)
			fmt.Fprintln(out, resp.Response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.UserID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&params.Thread, "thread", "t", "", "Explicit thread name")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	params := &struct {
		UserID string
		Output string
	}{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print all threads of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			archive, err := din.GetT[*chat.Archive](c)
			if err != nil {
				return err
			}

			threads, err := archive.History(c, params.UserID)
			if err != nil {
				return err
			}

			return printHistory(cmd.OutOrStdout(), params.Output, historyResponse{
				UserID:  params.UserID,
				Threads: threads,
			})
		},
	}

	cmd.Flags().StringVarP(&params.UserID, "user", "u", "", "User id")
	cmd.Flags().StringVarP(&params.Output, "output", "o", "yaml", "Output format: json or yaml")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List known personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := din.NewContainer(cmd.Context(), din.EnvProd)
			defer c.Close()

			catalog, err := din.GetT[*persona.Catalog](c)
			if err != nil {
				return err
			}

			for _, name := range catalog.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func printHistory(w io.Writer, format string, h historyResponse) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	case "yaml", "":
		out, err := yaml.Marshal(h)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal history")
		}
		_, err = w.Write(out)
		return err
	default:
		return errors.Wrapf(errors.ErrInvalidParams, "unknown output format %q", format)
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
