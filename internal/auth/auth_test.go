package auth_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"testing"

	api "github.com/nixpig/tsh/api/v1"
	"github.com/nixpig/tsh/internal/auth"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

func peerContext(ctx context.Context, cn string, ou ...string) context.Context {
	cert := &x509.Certificate{
		Subject: pkix.Name{
			CommonName:         cn,
			OrganizationalUnit: ou,
		},
	}

	authInfo := credentials.TLSInfo{
		State: tls.ConnectionState{
			VerifiedChains: [][]*x509.Certificate{{cert}},
		},
	}

	return peer.NewContext(ctx, &peer.Peer{AuthInfo: authInfo})
}

func TestIsAuthorised(t *testing.T) {
	t.Parallel()

	scenarios := map[string]struct {
		role    auth.Role
		method  string
		wantErr error
	}{
		"Test operator can list jobs": {
			role:   auth.RoleOperator,
			method: api.JobControl_ListJobs_FullMethodName,
		},
		"Test operator can resume job": {
			role:   auth.RoleOperator,
			method: api.JobControl_ResumeJob_FullMethodName,
		},
		"Test operator can signal job": {
			role:   auth.RoleOperator,
			method: api.JobControl_SignalJob_FullMethodName,
		},

		"Test viewer can list jobs": {
			role:   auth.RoleViewer,
			method: api.JobControl_ListJobs_FullMethodName,
		},
		"Test viewer cannot resume job": {
			role:    auth.RoleViewer,
			method:  api.JobControl_ResumeJob_FullMethodName,
			wantErr: auth.ErrPermissionDenied,
		},
		"Test viewer cannot signal job": {
			role:    auth.RoleViewer,
			method:  api.JobControl_SignalJob_FullMethodName,
			wantErr: auth.ErrPermissionDenied,
		},

		"Test unknown method": {
			role:    auth.RoleOperator,
			method:  "/tsh.v1.JobControl/Unknown",
			wantErr: auth.ErrUnknownMethod,
		},
		"Test unknown role": {
			role:    auth.Role("admin"),
			method:  api.JobControl_ListJobs_FullMethodName,
			wantErr: auth.ErrUnknownRole,
		},
		"Test empty role": {
			role:    auth.Role(""),
			method:  api.JobControl_ListJobs_FullMethodName,
			wantErr: auth.ErrUnknownRole,
		},
	}

	for scenario, config := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			err := auth.IsAuthorised(config.role, config.method)

			if config.wantErr == nil && err != nil {
				t.Errorf("expected authorised not to return error: got '%v'", err)
			}

			if config.wantErr != nil && !errors.Is(err, config.wantErr) {
				t.Errorf("expected error: got '%v', want '%v'", err, config.wantErr)
			}
		})
	}
}

func TestMethodsHavePermissions(t *testing.T) {
	t.Parallel()

	t.Run("Test all methods have permissions assigned", func(t *testing.T) {
		for _, m := range api.JobControl_ServiceDesc.Methods {
			fullMethodName := fmt.Sprintf(
				"/%s/%s",
				api.JobControl_ServiceDesc.ServiceName,
				m.MethodName,
			)
			if _, exists := auth.MethodPermissions[fullMethodName]; !exists {
				t.Errorf(
					"gRPC method doesn't have permission assigned: '%v'",
					fullMethodName,
				)
			}
		}
	})
}

func TestClientIdentity(t *testing.T) {
	t.Parallel()

	t.Run("Test peer with valid TLS info", func(t *testing.T) {
		ctx := peerContext(t.Context(), "alice", "operator", "ignored")

		id, err := auth.ClientIdentity(ctx)
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.Name != "alice" {
			t.Errorf("expected name: got '%s', want 'alice'", id.Name)
		}

		if id.Role != auth.RoleOperator {
			t.Errorf("expected role: got '%s', want 'operator'", id.Role)
		}
	})

	t.Run("Test certificate without OU", func(t *testing.T) {
		id, err := auth.ClientIdentity(peerContext(t.Context(), "carol"))
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.Role != "" {
			t.Errorf("expected empty role: got '%s'", id.Role)
		}
	})

	t.Run("Test peer with no TLS info", func(t *testing.T) {
		ctx := peer.NewContext(t.Context(), &peer.Peer{AuthInfo: nil})

		id, err := auth.ClientIdentity(ctx)
		if !errors.Is(err, auth.ErrNoIdentity) {
			t.Errorf("expected to receive ErrNoIdentity: got '%v'", err)
		}

		if id != (auth.Identity{}) {
			t.Errorf("expected empty identity: got '%v'", id)
		}
	})

	t.Run("Test no verified chains", func(t *testing.T) {
		ctx := peer.NewContext(t.Context(), &peer.Peer{
			AuthInfo: credentials.TLSInfo{},
		})

		if _, err := auth.ClientIdentity(ctx); !errors.Is(err, auth.ErrNoIdentity) {
			t.Errorf("expected to receive ErrNoIdentity: got '%v'", err)
		}
	})

	t.Run("Test no peer in context", func(t *testing.T) {
		if _, err := auth.ClientIdentity(t.Context()); !errors.Is(err, auth.ErrNoIdentity) {
			t.Errorf("expected to receive ErrNoIdentity: got '%v'", err)
		}
	})
}

func TestAuthorise(t *testing.T) {
	t.Parallel()

	t.Run("Test operator can resume job", func(t *testing.T) {
		ctx := peerContext(t.Context(), "alice", "operator")

		id, err := auth.Authorise(ctx, api.JobControl_ResumeJob_FullMethodName)
		if err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}

		if id.Name != "alice" {
			t.Errorf("expected name: got '%s', want 'alice'", id.Name)
		}
	})

	t.Run("Test viewer cannot resume job", func(t *testing.T) {
		ctx := peerContext(t.Context(), "bob", "viewer")

		id, err := auth.Authorise(ctx, api.JobControl_ResumeJob_FullMethodName)
		if !errors.Is(err, auth.ErrPermissionDenied) {
			t.Errorf("expected to receive ErrPermissionDenied: got '%v'", err)
		}

		if id.Name != "bob" {
			t.Errorf("expected identity with denial: got '%v'", id)
		}
	})

	t.Run("Test viewer can list jobs", func(t *testing.T) {
		ctx := peerContext(t.Context(), "bob", "viewer")

		if _, err := auth.Authorise(ctx, api.JobControl_ListJobs_FullMethodName); err != nil {
			t.Errorf("expected not to receive error: got '%v'", err)
		}
	})

	t.Run("Test invalid context", func(t *testing.T) {
		if _, err := auth.Authorise(t.Context(), api.JobControl_ListJobs_FullMethodName); err == nil {
			t.Errorf("expected to receive error")
		}
	})
}
