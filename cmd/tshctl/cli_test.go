package main

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	api "github.com/nixpig/tsh/api/v1"
	"github.com/nixpig/tsh/internal/testcerts"
	"github.com/nixpig/tsh/internal/tlsconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// fakeShell serves a fixed job table.
type fakeShell struct {
	api.UnimplementedJobControlServer

	mu      sync.Mutex
	jobs    []api.Job
	signals []string
}

func (f *fakeShell) find(ref string) (api.Job, bool) {
	for _, j := range f.jobs {
		if ref == "%"+strconv.Itoa(j.ID) || ref == strconv.Itoa(j.PID) {
			return j, true
		}
	}

	return api.Job{}, false
}

func (f *fakeShell) ListJobs(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return api.NewJobList("test-session", f.jobs)
}

func (f *fakeShell) ResumeJob(
	_ context.Context,
	req *wrapperspb.StringValue,
) (*structpb.Struct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.find(req.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%s: No such job", req.GetValue())
	}

	job.State = "Running"

	return api.NewJob(job)
}

func (f *fakeShell) SignalJob(
	_ context.Context,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref, sig, err := api.ParseSignalRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	job, ok := f.find(ref)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%s: No such job", ref)
	}

	f.signals = append(f.signals, sig)

	return api.NewJob(job)
}

func setupFakeShell(t *testing.T) (*fakeShell, *testcerts.Set, string) {
	t.Helper()

	certs := testcerts.New(t)

	creds, err := tlsconfig.Credentials(&tlsconfig.Config{
		CertPath:   certs.ServerCert,
		KeyPath:    certs.ServerKey,
		CACertPath: certs.CACert,
		Server:     true,
	})
	if err != nil {
		t.Fatalf("failed to setup server TLS: '%v'", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to setup listener: '%v'", err)
	}

	fake := &fakeShell{
		jobs: []api.Job{
			{ID: 1, PID: 4242, State: "Stopped", Command: "vi notes"},
			{ID: 2, PID: 4300, State: "Running", Command: "sleep 50 &"},
		},
	}

	s := grpc.NewServer(grpc.Creds(creds))
	api.RegisterJobControlServer(s, fake)

	go s.Serve(listener)

	t.Cleanup(s.Stop)

	_, port, _ := net.SplitHostPort(listener.Addr().String())

	return fake, certs, port
}

func execute(t *testing.T, certs *testcerts.Set, port string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newCLI().rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--server-hostname", "localhost",
		"--server-port", port,
		"--cert-path", certs.OperatorCert,
		"--key-path", certs.OperatorKey,
		"--ca-cert-path", certs.CACert,
	}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestCLI(t *testing.T) {
	fake, certs, port := setupFakeShell(t)

	t.Run("Test jobs", func(t *testing.T) {
		out, err := execute(t, certs, port, "jobs")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and two jobs: got '%q'", out)
		}

		if !strings.HasPrefix(lines[0], "JOB") {
			t.Errorf("expected header: got '%s'", lines[0])
		}

		for i, want := range []string{"%1", "4242", "Stopped", "vi notes"} {
			if !strings.Contains(lines[1], want) {
				t.Errorf("expected field %d '%s' in line: got '%s'", i, want, lines[1])
			}
		}
	})

	t.Run("Test bg", func(t *testing.T) {
		out, err := execute(t, certs, port, "bg", "%1")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if out != "[1] (4242) vi notes\n" {
			t.Errorf("expected output: got '%q', want '%q'", out, "[1] (4242) vi notes\n")
		}
	})

	t.Run("Test bg unknown job", func(t *testing.T) {
		_, err := execute(t, certs, port, "bg", "%9")
		if err == nil || err.Error() != "%9: No such job" {
			t.Errorf("expected no such job error: got '%v'", err)
		}
	})

	t.Run("Test kill default signal", func(t *testing.T) {
		if _, err := execute(t, certs, port, "kill", "%2"); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}
	})

	t.Run("Test kill with signal", func(t *testing.T) {
		if _, err := execute(t, certs, port, "kill", "-s", "STOP", "4300"); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}
	})

	t.Run("Test kill without reference", func(t *testing.T) {
		if _, err := execute(t, certs, port, "kill"); err == nil {
			t.Errorf("expected to receive error")
		}
	})

	fake.mu.Lock()
	defer fake.mu.Unlock()

	want := []string{"TERM", "STOP"}
	if strings.Join(fake.signals, ",") != strings.Join(want, ",") {
		t.Errorf("expected signals: got '%v', want '%v'", fake.signals, want)
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	scenarios := map[string]struct {
		err  error
		want string
	}{
		"Test permission denied": {
			err:  status.Error(codes.PermissionDenied, "not authorised"),
			want: "permission denied",
		},
		"Test not authenticated": {
			err:  status.Error(codes.Unauthenticated, "not authenticated"),
			want: "not authenticated",
		},
		"Test unavailable": {
			err:  status.Error(codes.Unavailable, "connection refused"),
			want: "server unavailable",
		},
		"Test not found keeps message": {
			err:  status.Error(codes.NotFound, "(1234): No such process"),
			want: "(1234): No such process",
		},
		"Test invalid argument keeps message": {
			err:  status.Error(codes.InvalidArgument, "bg: argument must be a PID or %jobid"),
			want: "bg: argument must be a PID or %jobid",
		},
	}

	for scenario, config := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			if got := mapError(config.err).Error(); got != config.want {
				t.Errorf("expected message: got '%s', want '%s'", got, config.want)
			}
		})
	}
}
