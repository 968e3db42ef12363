package domain

import "time"

// VoteState is the vote-related snapshot of a content item.
type VoteState struct {
	VoteCount int       `json:"voteCount"`
	Voters    []string  `json:"usersVote"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Normalize returns a copy of s with duplicate voters collapsed (first
// occurrence wins), a non-nil Voters slice and VoteCount derived from it.
// Items stored before voting existed have no voters and come out as 0 / [].
func (s VoteState) Normalize() VoteState {
	seen := make(map[string]struct{}, len(s.Voters))
	voters := make([]string, 0, len(s.Voters))
	for _, v := range s.Voters {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		voters = append(voters, v)
	}
	return VoteState{VoteCount: len(voters), Voters: voters, UpdatedAt: s.UpdatedAt}
}

// HasVoter reports whether voter is in s.
func (s VoteState) HasVoter(voter string) bool {
	for _, v := range s.Voters {
		if v == voter {
			return true
		}
	}
	return false
}

// ToggleVote applies one toggle by voter to the snapshot s. If voter already
// voted the vote is retracted, otherwise it is added. s is not modified.
// The second return value is true when the vote was added.
func ToggleVote(s VoteState, voter string, now time.Time) (VoteState, bool) {
	next := s.Normalize()
	added := !next.HasVoter(voter)
	if added {
		next.Voters = append(next.Voters, voter)
	} else {
		kept := next.Voters[:0]
		for _, v := range next.Voters {
			if v != voter {
				kept = append(kept, v)
			}
		}
		next.Voters = kept
	}
	next.VoteCount = len(next.Voters)
	next.UpdatedAt = now
	return next, added
}

// Fields returns the partial document written back after a toggle. voters and
// voteCount always travel together in one update.
func (s VoteState) Fields() Fields {
	voters := make([]any, len(s.Voters))
	for i, v := range s.Voters {
		voters[i] = v
	}
	return Fields{
		"usersVote": voters,
		"voteCount": float64(s.VoteCount),
		"updatedAt": s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
