package link

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRole = errors.New("link: invalid role")

// Role is fixed for the lifetime of a session.
type Role int

const (
	RoleMaster Role = iota
	RoleSlave
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleSlave:
		return "slave"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	return r == RoleMaster || r == RoleSlave
}

// Peer returns the role on the other end of the wire.
func (r Role) Peer() Role {
	if r == RoleMaster {
		return RoleSlave
	}
	return RoleMaster
}

func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "master", "0":
		return RoleMaster, nil
	case "slave", "1":
		return RoleSlave, nil
	default:
		return RoleMaster, fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}
