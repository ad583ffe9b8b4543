// internal/domain/models/teamenums.go
package models

import "fmt"

// Role is a member's role within one team.
type Role string

const (
	RoleExecutiveLeader Role = "EXECUTIVE_LEADER"
	RoleLeader          Role = "LEADER"
	RoleSeniorMember    Role = "SENIOR_MEMBER"
	RoleMember          Role = "MEMBER"
	RoleJuniorMember    Role = "JUNIOR_MEMBER"
)

// ParseRole converts a stored value into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleExecutiveLeader, RoleLeader, RoleSeniorMember, RoleMember, RoleJuniorMember:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown team role %q", s)
}

// CanEditTeam reports whether the role may edit team settings and tasks.
func (r Role) CanEditTeam() bool {
	switch r {
	case RoleExecutiveLeader:
		return true
	case RoleLeader, RoleSeniorMember, RoleMember, RoleJuniorMember:
		return false
	}
	return false
}

// Participation is how much time a member commits to a team.
type Participation string

const (
	ParticipationFullTime   Participation = "FULL_TIME"
	ParticipationPartTime   Participation = "PART_TIME"
	ParticipationOccasional Participation = "OCCASIONAL"
)

// ParseParticipation converts a stored value into a Participation.
func ParseParticipation(s string) (Participation, error) {
	switch Participation(s) {
	case ParticipationFullTime, ParticipationPartTime, ParticipationOccasional:
		return Participation(s), nil
	}
	return "", fmt.Errorf("unknown participation %q", s)
}

// JoinRequestResult is the outcome of asking to join a team.
type JoinRequestResult string

const (
	JoinRequestAlreadyExists JoinRequestResult = "ALREADY_EXISTS"
	JoinRequestFailed        JoinRequestResult = "FAILED"
	JoinRequestAdded         JoinRequestResult = "ADDED"
)
