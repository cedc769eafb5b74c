package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

type lassieBackend struct {
	caller
	raw          *api.LassieClient
	institutions InstitutionTable
}

func (b *lassieBackend) kind() string { return "lassie" }

func (b *lassieBackend) defaultActiveStrategy() ActiveStrategy { return ActiveByFlag }

func (b *lassieBackend) get(ctx context.Context, model, method string, params url.Values, out any) error {
	return b.call(ctx, model+"."+method, true, func() (json.RawMessage, error) {
		return b.raw.Request(ctx, http.MethodGet, model, method, params)
	}, out)
}

func (b *lassieBackend) post(ctx context.Context, model, method string, params url.Values) error {
	var result api.LassieResult
	err := b.call(ctx, model+"."+method, false, func() (json.RawMessage, error) {
		return b.raw.Request(ctx, http.MethodPost, model, method, params)
	}, &result)
	if err != nil {
		return err
	}
	if !result.Success {
		return &ServiceError{StatusCode: result.StatusCode, Message: result.Message}
	}
	return nil
}

func idParam(key string, id int) url.Values {
	return url.Values{key: {strconv.Itoa(id)}}
}

func (b *lassieBackend) person(ctx context.Context, id int) (api.LassiePerson, error) {
	var raw api.LassiePerson
	err := b.get(ctx, api.ModelPerson, api.MethodGetPerson, idParam("id", id), &raw)
	return raw, err
}

func (b *lassieBackend) member(ctx context.Context, id int) (Member, error) {
	raw, err := b.person(ctx, id)
	if err != nil {
		return Member{}, err
	}
	return mapLassiePerson(raw), nil
}

func (b *lassieBackend) members(ctx context.Context) ([]Member, error) {
	var raw []api.LassiePerson
	if err := b.get(ctx, api.ModelPerson, api.MethodGetPersons, nil, &raw); err != nil {
		return nil, err
	}
	members := make([]Member, len(raw))
	for i, p := range raw {
		members[i] = mapLassiePerson(p)
	}
	return members, nil
}

// membersByID filters the full list; person_model has no id filter.
func (b *lassieBackend) membersByID(ctx context.Context, ids []int) ([]Member, error) {
	all, err := b.members(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(m Member) bool {
		return !slices.Contains(ids, m.ID)
	}), nil
}

func (b *lassieBackend) activeMemberIDs(ctx context.Context, today time.Time) ([]int, error) {
	var rows []api.LassieMembership
	params := url.Values{"date": {formatDay(today)}}
	if err := b.get(ctx, api.ModelMembership, api.MethodGetActive, params, &rows); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		if r.ExpiryDate != nil && !onOrAfter(r.ExpiryDate.Time, today) {
			continue
		}
		ids = append(ids, r.PersonId)
	}
	return uniqueIDs(ids), nil
}

func (b *lassieBackend) memberDetail(ctx context.Context, id int) (MemberDetail, error) {
	raw, err := b.person(ctx, id)
	if err != nil {
		return MemberDetail{}, err
	}
	var options []api.LassieOption
	if err := b.get(ctx, api.ModelPerson, api.MethodGetPersonOptions, nil, &options); err != nil {
		return MemberDetail{}, err
	}
	return mapLassieDetail(raw, options, b.institutions), nil
}

func (b *lassieBackend) committeesNamed(ctx context.Context, substr string) ([]int, error) {
	var rows []api.LassieCommittee
	if err := b.get(ctx, api.ModelCommittee, api.MethodGetCommittees, nil, &rows); err != nil {
		return nil, err
	}
	var ids []int
	for _, c := range rows {
		if strings.Contains(c.Name, substr) {
			ids = append(ids, c.Id)
		}
	}
	return ids, nil
}

// activeCommitteeSeats counts seats without an end date as active.
func (b *lassieBackend) activeCommitteeSeats(ctx context.Context, memberID int, committees []int, today time.Time) (int, error) {
	var rows []api.LassieCommitteeMember
	if err := b.get(ctx, api.ModelCommittee, api.MethodGetPersonCommittees, idParam("person_id", memberID), &rows); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		if !slices.Contains(committees, r.CommitteeId) {
			continue
		}
		if r.EndDate != nil && !onOrAfter(r.EndDate.Time, today) {
			continue
		}
		n++
	}
	return n, nil
}

// pinHash reports an unknown member as one without a credential, the way
// the Directus backend does.
func (b *lassieBackend) pinHash(ctx context.Context, id int) (string, error) {
	var raw api.LassiePinHash
	if err := b.get(ctx, api.ModelPerson, api.MethodGetPinHash, idParam("id", id), &raw); err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return raw.Hash, nil
}

func (b *lassieBackend) setPinHash(ctx context.Context, id int, hash string) error {
	params := idParam("id", id)
	params.Set("hash", hash)
	return b.post(ctx, api.ModelPerson, api.MethodSetPinHash, params)
}

func (b *lassieBackend) createPerson(ctx context.Context, p NewPerson, today time.Time) (Member, error) {
	params := url.Values{}
	params.Set("first_name", p.FirstName)
	params.Set("infix", p.Infix)
	params.Set("last_name", p.LastName)
	params.Set("phone_home", p.Phone)
	params.Set("email_primary", p.Email)
	if !p.Birthdate.IsZero() {
		// Lassie's historic field name for the birth date
		params.Set("birthdatebug", formatDay(p.Birthdate))
	}
	params.Set("department_id", p.Institution)
	params.Set("study", p.Study)
	params.Set("address_street", p.AddressStreet)
	params.Set("address_number", p.AddressNumber)
	params.Set("address_zip", p.AddressZip)
	params.Set("address_city", p.AddressCity)
	params.Set("address_country", p.AddressCountry)
	params.Set("member_since", formatDay(today))

	var raw api.LassiePerson
	err := b.call(ctx, api.ModelPerson+"."+api.MethodCreatePerson, false, func() (json.RawMessage, error) {
		return b.raw.Request(ctx, http.MethodPost, api.ModelPerson, api.MethodCreatePerson, params)
	}, &raw)
	if err != nil {
		return Member{}, err
	}
	return mapLassiePerson(raw), nil
}

func (b *lassieBackend) updatePerson(ctx context.Context, id int, u PersonUpdate) error {
	params := idParam("id", id)
	set := func(key string, v *string) {
		if v != nil {
			params.Set(key, *v)
		}
	}
	set("first_name", u.FirstName)
	set("infix", u.Infix)
	set("last_name", u.LastName)
	set("phone_home", u.Phone)
	set("email_primary", u.Email)
	set("study", u.Study)

	return b.post(ctx, api.ModelPerson, api.MethodUpdatePerson, params)
}

func (b *lassieBackend) listMemberships(ctx context.Context, method string, id int) ([]Membership, error) {
	var rows []api.LassieMembership
	if err := b.get(ctx, api.ModelMembership, method, idParam("person_id", id), &rows); err != nil {
		return nil, err
	}
	out := make([]Membership, len(rows))
	for i, r := range rows {
		out[i] = mapLassieMembership(r)
	}
	return out, nil
}

func (b *lassieBackend) memberships(ctx context.Context, id int, _ time.Time) ([]Membership, error) {
	return b.listMemberships(ctx, api.MethodGetMemberships, id)
}

func (b *lassieBackend) payableMemberships(ctx context.Context, id int) ([]Membership, error) {
	return b.listMemberships(ctx, api.MethodGetPayable, id)
}
