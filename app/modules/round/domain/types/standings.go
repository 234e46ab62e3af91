package roundtypes

import (
	"fmt"
	"slices"
	"strings"
)

// Rating deltas applied at completion.
const (
	SoleWinnerDelta   = 2
	SharedWinnerDelta = 1
	NonWinnerDelta    = -1
)

// RatingChange is the outcome of a completed round for a single participant.
type RatingChange struct {
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
	Total       int64  `json:"total"`
	Delta       int    `json:"delta"`
	Winner      bool   `json:"winner"`
}

// Standings ranks the participants of a round.
type Standings struct {
	Changes  []RatingChange `json:"changes"`
	TopTotal int64          `json:"top_total"`
}

// SortParticipants orders participants by total descending. Earlier joiners
// and then lower user ids come first among equal totals.
func SortParticipants(participants []Participant) {
	slices.SortStableFunc(participants, func(a, b Participant) int {
		switch {
		case a.TotalContribution != b.TotalContribution:
			if a.TotalContribution > b.TotalContribution {
				return -1
			}
			return 1
		case !a.JoinedAt.Equal(b.JoinedAt):
			return a.JoinedAt.Compare(b.JoinedAt)
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
}

// ComputeStandings applies the rating rule: a sole winner gains two points,
// each tied winner gains one and everyone else loses one.
func ComputeStandings(participants []Participant) Standings {
	if len(participants) == 0 {
		return Standings{}
	}

	ranked := slices.Clone(participants)
	SortParticipants(ranked)

	top := ranked[0].TotalContribution
	winners := 0
	for _, p := range ranked {
		if p.TotalContribution == top {
			winners++
		}
	}

	winnerDelta := SoleWinnerDelta
	if winners > 1 {
		winnerDelta = SharedWinnerDelta
	}

	changes := make([]RatingChange, 0, len(ranked))
	for _, p := range ranked {
		change := RatingChange{
			UserID:      p.UserID,
			DisplayName: displayName(p.DisplayName),
			Total:       p.TotalContribution,
			Delta:       NonWinnerDelta,
		}
		if p.TotalContribution == top {
			change.Delta = winnerDelta
			change.Winner = true
		}
		changes = append(changes, change)
	}

	return Standings{Changes: changes, TopTotal: top}
}

// Winners returns the tie set.
func (s Standings) Winners() []RatingChange {
	var winners []RatingChange
	for _, c := range s.Changes {
		if c.Winner {
			winners = append(winners, c)
		}
	}
	return winners
}

// AuditMessages renders one message per participant followed by a summary.
func (s Standings) AuditMessages() []string {
	if len(s.Changes) == 0 {
		return []string{"Tournament completed with no participants."}
	}

	messages := make([]string, 0, len(s.Changes)+1)
	for _, c := range s.Changes {
		verb := "gained"
		amount := c.Delta
		if c.Delta < 0 {
			verb = "lost"
			amount = -c.Delta
		}
		messages = append(messages, fmt.Sprintf("User %s scored %d pushups and %s %d points.", c.DisplayName, c.Total, verb, amount))
	}

	winners := s.Winners()
	if len(winners) == 1 {
		messages = append(messages, fmt.Sprintf("Tournament completed. Winner: %s with %d pushups.", winners[0].DisplayName, s.TopTotal))
		return messages
	}

	names := make([]string, 0, len(winners))
	for _, w := range winners {
		names = append(names, w.DisplayName)
	}
	messages = append(messages, fmt.Sprintf("Tournament completed. Tie between: %s with %d each.", strings.Join(names, ", "), s.TopTotal))
	return messages
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return UnknownDisplayName
	}
	return name
}
