package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"syscall"

	api "github.com/nixpig/tsh/api/v1"
	"github.com/nixpig/tsh/internal/jobcontrol"
	"github.com/nixpig/tsh/internal/jobs"
	"github.com/nixpig/tsh/internal/tlsconfig"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Names shown in errors for remote requests, matching the built-ins.
const (
	remoteResumeName = "bg"
	remoteSignalName = "kill"
)

// server exposes the shell's job table over gRPC.
type server struct {
	api.UnimplementedJobControlServer

	ctrl       *jobcontrol.Controller
	logger     *slog.Logger
	grpcServer *grpc.Server
}

func newServer(
	ctrl *jobcontrol.Controller,
	logger *slog.Logger,
	cfg *config,
) (*server, error) {
	creds, err := tlsconfig.Credentials(&tlsconfig.Config{
		CertPath:   cfg.CertPath,
		KeyPath:    cfg.KeyPath,
		CACertPath: cfg.CACertPath,
		Server:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("load TLS credentials: %w", err)
	}

	s := &server{ctrl: ctrl, logger: logger}

	s.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			contextCheckUnaryInterceptor,
			authUnaryInterceptor(logger),
		),
		grpc.Creds(creds),
	)

	api.RegisterJobControlServer(s.grpcServer, s)

	return s, nil
}

func (s *server) start(listener net.Listener) error {
	s.logger.Debug("serving job control API", "addr", listener.Addr().String())

	return s.grpcServer.Serve(listener)
}

func (s *server) shutdown() {
	s.grpcServer.GracefulStop()
}

func (s *server) ListJobs(
	ctx context.Context,
	_ *emptypb.Empty,
) (*structpb.Struct, error) {
	list := s.ctrl.Jobs()

	wire := make([]api.Job, 0, len(list))
	for _, j := range list {
		wire = append(wire, toWire(j))
	}

	resp, err := api.NewJobList(s.ctrl.SessionID(), wire)
	if err != nil {
		return nil, s.mapError("list jobs", err)
	}

	return resp, nil
}

func (s *server) ResumeJob(
	ctx context.Context,
	req *wrapperspb.StringValue,
) (*structpb.Struct, error) {
	job, err := s.ctrl.Background(remoteResumeName, req.GetValue())
	if err != nil {
		return nil, s.mapError("resume job", err)
	}

	resp, err := api.NewJob(toWire(job))
	if err != nil {
		return nil, s.mapError("resume job", err)
	}

	return resp, nil
}

func (s *server) SignalJob(
	ctx context.Context,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	ref, name, err := api.ParseSignalRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sig, err := parseSignal(name)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	job, err := s.ctrl.Signal(remoteSignalName, ref, sig)
	if err != nil {
		return nil, s.mapError("signal job", err)
	}

	resp, err := api.NewJob(toWire(job))
	if err != nil {
		return nil, s.mapError("signal job", err)
	}

	return resp, nil
}

// mapError translates job control errors to gRPC errors.
func (s *server) mapError(logMsg string, err error) error {
	switch {
	case errors.Is(err, jobcontrol.ErrNoSuchJob),
		errors.Is(err, jobcontrol.ErrNoSuchProcess):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, jobcontrol.ErrMissingReference),
		errors.Is(err, jobcontrol.ErrMalformedReference):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, jobs.ErrForegroundBusy):
		s.logger.Warn(logMsg, "err", err)
		return status.Error(codes.FailedPrecondition, err.Error())

	default:
		s.logger.Error(logMsg, "err", err)
		return status.Error(codes.Internal, "internal server error")
	}
}

func toWire(j jobs.Job) api.Job {
	return api.Job{
		ID:      j.ID,
		PID:     j.PID,
		State:   j.State.String(),
		Command: j.Cmdline,
	}
}

// parseSignal accepts a signal name with or without the SIG prefix, in any
// case, or a signal number.
func parseSignal(name string) (syscall.Signal, error) {
	if n, err := strconv.Atoi(name); err == nil {
		if n <= 0 || unix.SignalName(syscall.Signal(n)) == "" {
			return 0, fmt.Errorf("unknown signal %q", name)
		}

		return syscall.Signal(n), nil
	}

	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "SIG") {
		upper = "SIG" + upper
	}

	sig := unix.SignalNum(upper)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}

	return sig, nil
}

// contextCheckUnaryInterceptor rejects requests with a cancelled context.
func contextCheckUnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if ctx.Err() != nil {
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	return handler(ctx, req)
}
