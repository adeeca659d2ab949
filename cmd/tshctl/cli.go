package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"text/tabwriter"

	api "github.com/nixpig/tsh/api/v1"
	"github.com/nixpig/tsh/internal/tlsconfig"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const version = "0.1.0"

type config struct {
	serverHostname string
	serverPort     string
	caCertPath     string
	certPath       string
	keyPath        string
}

type cli struct {
	client api.JobControlClient
	conn   *grpc.ClientConn
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) rootCmd() *cobra.Command {
	cfg := &config{}

	command := &cobra.Command{
		Use:          "tshctl",
		Short:        "CLI for controlling the jobs of a running tsh",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			creds, err := tlsconfig.Credentials(&tlsconfig.Config{
				CertPath:   cfg.certPath,
				KeyPath:    cfg.keyPath,
				CACertPath: cfg.caCertPath,
				ServerName: cfg.serverHostname,
			})
			if err != nil {
				return err
			}

			c.conn, err = grpc.NewClient(
				net.JoinHostPort(cfg.serverHostname, cfg.serverPort),
				grpc.WithTransportCredentials(creds),
			)
			if err != nil {
				return err
			}

			c.client = api.NewJobControlClient(c.conn)

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.conn == nil {
				return nil
			}

			return c.conn.Close()
		},
	}

	command.AddCommand(
		c.jobsCmd(),
		c.bgCmd(),
		c.killCmd(),
	)

	command.CompletionOptions.HiddenDefaultCmd = true

	command.PersistentFlags().StringVar(
		&cfg.serverHostname,
		"server-hostname",
		"localhost",
		"Server hostname",
	)

	command.PersistentFlags().StringVar(
		&cfg.serverPort,
		"server-port",
		"8443",
		"Server port",
	)

	command.PersistentFlags().StringVar(
		&cfg.certPath,
		"cert-path",
		"certs/client-operator.crt",
		"Path to client TLS certificate",
	)

	command.PersistentFlags().StringVar(
		&cfg.keyPath,
		"key-path",
		"certs/client-operator.key",
		"Path to client TLS private key",
	)

	command.PersistentFlags().StringVar(
		&cfg.caCertPath,
		"ca-cert-path",
		"certs/ca.crt",
		"Path to CA certificate for mTLS",
	)

	return command
}

func (c *cli) jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "jobs",
		Short:   "List the jobs of the shell",
		Example: "  tshctl jobs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.ListJobs(cmd.Context(), &emptypb.Empty{})
			if err != nil {
				return mapError(err)
			}

			_, list, err := api.ParseJobList(resp)
			if err != nil {
				return err
			}

			printJobs(cmd.OutOrStdout(), list)

			return nil
		},
	}
}

func (c *cli) bgCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "bg [flags] PID|%JOBID",
		Short:   "Continue a job in the background",
		Example: "  tshctl bg %1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client.ResumeJob(cmd.Context(), wrapperspb.String(args[0]))
			if err != nil {
				return mapError(err)
			}

			job, err := api.ParseJob(resp)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%d] (%d) %s\n", job.ID, job.PID, job.Command)

			return nil
		},
	}
}

func (c *cli) killCmd() *cobra.Command {
	var signal string

	command := &cobra.Command{
		Use:     "kill [flags] PID|%JOBID",
		Short:   "Send a signal to a job's process group",
		Example: "  tshctl kill %1\n  tshctl kill -s STOP 4242",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := api.NewSignalRequest(args[0], signal)
			if err != nil {
				return err
			}

			if _, err := c.client.SignalJob(cmd.Context(), req); err != nil {
				return mapError(err)
			}

			return nil
		},
	}

	command.Flags().StringVarP(&signal, "signal", "s", "TERM", "Signal name or number")

	return command
}

func printJobs(out io.Writer, list []api.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "JOB\tPID\tSTATE\tCOMMAND\t\n")

	for _, j := range list {
		fmt.Fprintf(w, "%%%d\t%d\t%s\t%s\t\n", j.ID, j.PID, j.State, j.Command)
	}

	w.Flush()
}

// mapError translates gRPC errors to human-readable messages.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.PermissionDenied:
		return errors.New("permission denied")
	case codes.Unauthenticated:
		return errors.New("not authenticated")
	case codes.Unavailable:
		return errors.New("server unavailable")
	default:
		// NotFound and InvalidArgument carry the shell's own message.
		return fmt.Errorf("%s", st.Message())
	}
}
