package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
)

// backend is one of the supported backend API shapes. Implementations do
// the wire calls and hand back canonical values; the Client composes them.
type backend interface {
	kind() string
	defaultActiveStrategy() ActiveStrategy

	member(ctx context.Context, id int) (Member, error)
	members(ctx context.Context) ([]Member, error)
	membersByID(ctx context.Context, ids []int) ([]Member, error)
	activeMemberIDs(ctx context.Context, today time.Time) ([]int, error)
	memberDetail(ctx context.Context, id int) (MemberDetail, error)

	committeesNamed(ctx context.Context, substr string) ([]int, error)
	activeCommitteeSeats(ctx context.Context, memberID int, committees []int, today time.Time) (int, error)

	pinHash(ctx context.Context, id int) (string, error)
	setPinHash(ctx context.Context, id int, hash string) error

	createPerson(ctx context.Context, p NewPerson, today time.Time) (Member, error)
	updatePerson(ctx context.Context, id int, u PersonUpdate) error
	memberships(ctx context.Context, id int, today time.Time) ([]Membership, error)
	payableMemberships(ctx context.Context, id int) ([]Membership, error)
}

// caller runs one backend round-trip: retry, error classification,
// logging and decoding.
type caller struct {
	retrier *Retrier
	logger  *log.Logger
}

func (c caller) call(ctx context.Context, label string, idempotent bool, fn func() (json.RawMessage, error), out any) error {
	start := time.Now()

	var raw json.RawMessage
	err := c.retrier.Do(ctx, idempotent, func() error {
		var execErr error
		raw, execErr = fn()
		return classify(execErr)
	})
	took := time.Since(start).Round(time.Millisecond)
	if err != nil {
		c.logger.Debug("request failed", "call", label, "took", took, "err", err)
		return err
	}
	c.logger.Debug("request", "call", label, "took", took)

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return newUnexpectedResponseError(label, err)
	}
	return nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
