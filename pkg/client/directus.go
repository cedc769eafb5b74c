package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// boardSeatFields limits CommitteeMembers replies to what the board check needs.
var boardSeatFields = []string{"id", "committee", "member", "end"}

type directusBackend struct {
	caller
	raw          *api.DirectusClient
	institutions InstitutionTable
}

func (b *directusBackend) kind() string { return "directus" }

func (b *directusBackend) defaultActiveStrategy() ActiveStrategy { return ActiveByMembership }

func (b *directusBackend) get(ctx context.Context, path string, query url.Values, out any) error {
	return b.call(ctx, "GET "+path, true, func() (json.RawMessage, error) {
		return b.raw.Request(ctx, http.MethodGet, path, query, nil)
	}, out)
}

func (b *directusBackend) search(ctx context.Context, collection string, q api.Query, out any) error {
	return b.call(ctx, "SEARCH "+collection, true, func() (json.RawMessage, error) {
		return b.raw.Search(ctx, collection, q)
	}, out)
}

func (b *directusBackend) send(ctx context.Context, method, path string, body, out any) error {
	return b.call(ctx, method+" "+path, false, func() (json.RawMessage, error) {
		return b.raw.Request(ctx, method, path, nil, body)
	}, out)
}

func (b *directusBackend) member(ctx context.Context, id int) (Member, error) {
	if err := checkMemberID(id); err != nil {
		return Member{}, err
	}
	var raw api.DirectusMember
	if err := b.get(ctx, api.ItemsPath(api.CollectionMembers, id), nil, &raw); err != nil {
		return Member{}, err
	}
	return mapDirectusMember(raw), nil
}

func mapDirectusMembers(raw []api.DirectusMember) []Member {
	members := make([]Member, len(raw))
	for i, m := range raw {
		members[i] = mapDirectusMember(m)
	}
	return members
}

func (b *directusBackend) members(ctx context.Context) ([]Member, error) {
	query, err := api.Query{Limit: api.NoLimit}.Values()
	if err != nil {
		return nil, err
	}
	var raw []api.DirectusMember
	if err := b.get(ctx, api.CollectionPath(api.CollectionMembers), query, &raw); err != nil {
		return nil, err
	}
	return mapDirectusMembers(raw), nil
}

// membersByID searches rather than GETs: the id list can outgrow a URL.
func (b *directusBackend) membersByID(ctx context.Context, ids []int) ([]Member, error) {
	q := api.Query{Filter: api.Filter{"id": api.In(ids)}, Limit: api.NoLimit}
	var raw []api.DirectusMember
	if err := b.search(ctx, api.CollectionMembers, q, &raw); err != nil {
		return nil, err
	}
	return mapDirectusMembers(raw), nil
}

func (b *directusBackend) activeMemberIDs(ctx context.Context, today time.Time) ([]int, error) {
	q := api.Query{
		Filter: api.Filter{"type": map[string]any{"end": api.Gte(formatDay(today))}},
		Fields: []string{"member"},
		Limit:  api.NoLimit,
	}
	var rows []struct {
		Member int `json:"member"`
	}
	if err := b.search(ctx, api.CollectionMemberships, q, &rows); err != nil {
		return nil, err
	}
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.Member
	}
	return uniqueIDs(ids), nil
}

func (b *directusBackend) memberDetail(ctx context.Context, id int) (MemberDetail, error) {
	if err := checkMemberID(id); err != nil {
		return MemberDetail{}, err
	}
	var raw api.DirectusMember
	if err := b.get(ctx, api.ItemsPath(api.CollectionMembers, id), nil, &raw); err != nil {
		return MemberDetail{}, err
	}

	var address api.DirectusAddress
	if raw.Address != nil {
		if err := b.get(ctx, api.ItemsPath(api.CollectionMemberAddresses, *raw.Address), nil, &address); err != nil {
			return MemberDetail{}, err
		}
	}
	return mapDirectusDetail(raw, address, b.institutions), nil
}

func (b *directusBackend) committeesNamed(ctx context.Context, substr string) ([]int, error) {
	q := api.Query{Filter: api.Filter{"name": api.Contains(substr)}, Limit: api.NoLimit}
	var rows []api.DirectusCommittee
	if err := b.search(ctx, api.CollectionCommittees, q, &rows); err != nil {
		return nil, err
	}
	ids := make([]int, len(rows))
	for i, c := range rows {
		ids[i] = c.Id
	}
	return ids, nil
}

// activeCommitteeSeats counts seats without an end date as active.
func (b *directusBackend) activeCommitteeSeats(ctx context.Context, memberID int, committees []int, today time.Time) (int, error) {
	q := api.Query{
		Filter: api.Filter{
			"committee": api.In(committees),
			"member":    api.Eq(memberID),
			"_or": []api.Filter{
				{"end": api.Gte(formatDay(today))},
				{"end": api.Null()},
			},
		},
		Fields: boardSeatFields,
		Limit:  api.NoLimit,
	}
	var rows []api.DirectusCommitteeMember
	if err := b.search(ctx, api.CollectionCommitteeMembers, q, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (b *directusBackend) pinHashRow(ctx context.Context, id int) (*api.DirectusPinHash, error) {
	q := api.Query{Filter: api.Filter{"member": api.Eq(id)}}
	var rows []api.DirectusPinHash
	if err := b.search(ctx, api.CollectionPinHashes, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		b.logger.Warn("member has more than one PIN hash", "member", id, "count", len(rows))
	}
	return &rows[0], nil
}

func (b *directusBackend) pinHash(ctx context.Context, id int) (string, error) {
	row, err := b.pinHashRow(ctx, id)
	if err != nil || row == nil {
		return "", err
	}
	return row.Hash, nil
}

func (b *directusBackend) setPinHash(ctx context.Context, id int, hash string) error {
	row, err := b.pinHashRow(ctx, id)
	if err != nil {
		return err
	}
	if row != nil {
		return b.send(ctx, http.MethodPatch, api.ItemsPath(api.CollectionPinHashes, row.Id), map[string]any{"hash": hash}, nil)
	}
	return b.send(ctx, http.MethodPost, api.CollectionPath(api.CollectionPinHashes), api.DirectusPinHash{Member: id, Hash: hash}, nil)
}

func (b *directusBackend) createPerson(ctx context.Context, p NewPerson, today time.Time) (Member, error) {
	addressBody := map[string]any{
		"street":    p.AddressStreet,
		"number":    p.AddressNumber,
		"post_code": p.AddressZip,
		"city":      p.AddressCity,
		"country":   p.AddressCountry,
	}
	var address api.DirectusAddress
	if err := b.send(ctx, http.MethodPost, api.CollectionPath(api.CollectionMemberAddresses), addressBody, &address); err != nil {
		return Member{}, err
	}

	memberBody := map[string]any{
		"first_name":    p.FirstName,
		"infix":         p.Infix,
		"last_name":     p.LastName,
		"phone_number":  p.Phone,
		"email":         p.Email,
		"birth_date":    toDate(p.Birthdate),
		"institution":   p.Institution,
		"study_program": p.Study,
		"address":       address.Id,
		"join_date":     formatDay(today),
	}
	var raw api.DirectusMember
	if err := b.send(ctx, http.MethodPost, api.CollectionPath(api.CollectionMembers), memberBody, &raw); err != nil {
		return Member{}, err
	}
	return mapDirectusMember(raw), nil
}

func (b *directusBackend) updatePerson(ctx context.Context, id int, u PersonUpdate) error {
	if err := checkMemberID(id); err != nil {
		return err
	}
	body := map[string]any{}
	set := func(key string, v *string) {
		if v != nil {
			body[key] = *v
		}
	}
	set("first_name", u.FirstName)
	set("infix", u.Infix)
	set("last_name", u.LastName)
	set("phone_number", u.Phone)
	set("email", u.Email)
	set("study_program", u.Study)

	return b.send(ctx, http.MethodPatch, api.ItemsPath(api.CollectionMembers, id), body, nil)
}

func (b *directusBackend) memberships(ctx context.Context, id int, today time.Time) ([]Membership, error) {
	q := api.Query{
		Filter: api.Filter{"member": api.Eq(id)},
		Fields: []string{"*", "type.*"},
		Limit:  api.NoLimit,
	}
	var rows []api.DirectusMembership
	if err := b.search(ctx, api.CollectionMemberships, q, &rows); err != nil {
		return nil, err
	}
	out := make([]Membership, len(rows))
	for i, r := range rows {
		out[i] = mapDirectusMembership(r, today)
	}
	return out, nil
}

func (b *directusBackend) payableMemberships(context.Context, int) ([]Membership, error) {
	return nil, notImplemented("GetPayableMembershipsByID on directus")
}
