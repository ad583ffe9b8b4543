// internal/domain/models/team.go
package models

// Team is a named group of members.
//
// NOTE:
//   - Tasks are not embedded; they reference the team by id.
//   - Picture is an upload payload only. Once stored, the blob key lives in
//     PictureKey and Picture is left empty on reads.
type Team struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Picture     []byte           `json:"picture,omitempty"`
	PictureKey  string           `json:"picture_key,omitempty"`
	Members     []MemberInfoTeam `json:"members"`
	Category    int              `json:"category"`
	Created     Created          `json:"created"`
	Description string           `json:"description"`
	Requests    []Member         `json:"requests"`
}

// HasMember reports whether the user is one of the team's members.
func (t Team) HasMember(userID string) bool {
	_, ok := t.MemberInfoFor(userID)
	return ok
}

// MemberInfoFor returns the user's member record in this team.
func (t Team) MemberInfoFor(userID string) (MemberInfoTeam, bool) {
	for _, m := range t.Members {
		if m.Profile.ID == userID {
			return m, true
		}
	}
	return MemberInfoTeam{}, false
}

// HasRequest reports whether the user already asked to join.
func (t Team) HasRequest(userID string) bool {
	for _, r := range t.Requests {
		if r.ID == userID {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user holds an editing role in the team.
func (t Team) CanEdit(userID string) bool {
	info, ok := t.MemberInfoFor(userID)
	return ok && info.Role.CanEditTeam()
}

// WithoutMember returns a copy of the team without the member record.
func (t Team) WithoutMember(infoID string) Team {
	members := make([]MemberInfoTeam, 0, len(t.Members))
	for _, m := range t.Members {
		if m.ID != infoID {
			members = append(members, m)
		}
	}
	t.Members = members
	return t
}

// WithoutRequest returns a copy of the team without the user's join request.
func (t Team) WithoutRequest(userID string) Team {
	reqs := make([]Member, 0, len(t.Requests))
	for _, r := range t.Requests {
		if r.ID != userID {
			reqs = append(reqs, r)
		}
	}
	t.Requests = reqs
	return t
}
