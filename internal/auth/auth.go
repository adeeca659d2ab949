// Package auth maps mTLS client identities to the permissions they hold on
// the job control API. The role is taken from the first OU of the verified
// client certificate.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	api "github.com/nixpig/tsh/api/v1"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
)

var (
	ErrNoIdentity       = errors.New("no client identity")
	ErrUnknownMethod    = errors.New("method has no permission assigned")
	ErrUnknownRole      = errors.New("unknown role")
	ErrPermissionDenied = errors.New("role lacks permission")
)

type Permission string

const (
	PermissionJobList   Permission = "job:list"
	PermissionJobResume Permission = "job:resume"
	PermissionJobSignal Permission = "job:signal"
)

type Role string

const (
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

var RolePermissions = map[Role][]Permission{
	RoleOperator: {
		PermissionJobList,
		PermissionJobResume,
		PermissionJobSignal,
	},
	RoleViewer: {PermissionJobList},
}

var MethodPermissions = map[string]Permission{
	api.JobControl_ListJobs_FullMethodName:  PermissionJobList,
	api.JobControl_ResumeJob_FullMethodName: PermissionJobResume,
	api.JobControl_SignalJob_FullMethodName: PermissionJobSignal,
}

// Identity of a client as presented in its certificate.
type Identity struct {
	Name string
	Role Role
}

func ClientIdentity(ctx context.Context) (Identity, error) {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return Identity{}, fmt.Errorf("%w: no peer in context", ErrNoIdentity)
	}

	tlsInfo, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return Identity{}, fmt.Errorf("%w: peer is not using TLS", ErrNoIdentity)
	}

	chains := tlsInfo.State.VerifiedChains
	if len(chains) == 0 || len(chains[0]) == 0 {
		return Identity{}, fmt.Errorf("%w: no verified chains", ErrNoIdentity)
	}

	cert := chains[0][0]

	id := Identity{Name: cert.Subject.CommonName}
	if len(cert.Subject.OrganizationalUnit) > 0 {
		id.Role = Role(cert.Subject.OrganizationalUnit[0])
	}

	return id, nil
}

func IsAuthorised(role Role, method string) error {
	required, ok := MethodPermissions[method]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	permissions, ok := RolePermissions[role]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	if !slices.Contains(permissions, required) {
		return fmt.Errorf("%w: %s needs %s", ErrPermissionDenied, role, required)
	}

	return nil
}

// Authorise checks that the client calling method is allowed to and returns
// who it is.
func Authorise(ctx context.Context, method string) (Identity, error) {
	id, err := ClientIdentity(ctx)
	if err != nil {
		return Identity{}, err
	}

	if err := IsAuthorised(id.Role, method); err != nil {
		return id, err
	}

	return id, nil
}
