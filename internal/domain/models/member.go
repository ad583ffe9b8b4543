// internal/domain/models/member.go
package models

import "time"

// Member is a user profile.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Location string `json:"location"`
}

// MemberInfoTeam is a member's record inside exactly one team.
type MemberInfoTeam struct {
	ID            string        `json:"id"`
	Profile       Member        `json:"profile"`
	Role          Role          `json:"role"`
	Participation Participation `json:"participation"`
}

// Created stamps who created an entity and when.
type Created struct {
	Member    Member    `json:"member"`
	Timestamp time.Time `json:"timestamp"`
}
