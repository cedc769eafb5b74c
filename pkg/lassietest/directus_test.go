package lassietest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

func newDirectusClient(t *testing.T, srv *DirectusServer, token string) *api.DirectusClient {
	t.Helper()
	c, err := api.NewDirectusClient(srv.URL, api.WithRequestEditorFn(func(_ context.Context, req *http.Request) error {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}))
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

func TestDirectusServerAuth(t *testing.T) {
	srv := NewDirectusServer(t, "secret-token")
	ctx := context.Background()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "valid token", token: "secret-token"},
		{name: "wrong token", token: "nope", status: http.StatusUnauthorized},
		{name: "no token", token: "", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newDirectusClient(t, srv, tt.token)
			_, err := c.Request(ctx, http.MethodGet, api.CollectionPath(api.CollectionMembers), nil, nil)
			if tt.status == 0 {
				require.NoError(t, err)
				return
			}
			var re *api.ResponseError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.StatusCode)
			assert.NotEmpty(t, re.Message)
		})
	}
}

func TestDirectusServerItems(t *testing.T) {
	srv := NewDirectusServer(t, "tok")
	c := newDirectusClient(t, srv, "tok")
	ctx := context.Background()

	id := srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "Anna", LastName: "Smit"})
	assert.Equal(t, 1, id)

	raw, err := c.Request(ctx, http.MethodGet, api.ItemsPath(api.CollectionMembers, id), nil, nil)
	require.NoError(t, err)
	var m api.DirectusMember
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "Anna", m.FirstName)

	_, err = c.Request(ctx, http.MethodGet, api.ItemsPath(api.CollectionMembers, 99), nil, nil)
	var re *api.ResponseError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotFound, re.StatusCode)

	raw, err = c.Request(ctx, http.MethodPost, api.CollectionPath(api.CollectionPinHashes), nil, api.DirectusPinHash{Member: id, Hash: "h1"})
	require.NoError(t, err)
	var pin api.DirectusPinHash
	require.NoError(t, json.Unmarshal(raw, &pin))
	assert.Equal(t, 1, pin.Id)

	_, err = c.Request(ctx, http.MethodPatch, api.ItemsPath(api.CollectionPinHashes, pin.Id), nil, map[string]any{"hash": "h2"})
	require.NoError(t, err)
	assert.Equal(t, "h2", srv.Row(api.CollectionPinHashes, pin.Id)["hash"])
	assert.Len(t, srv.Rows(api.CollectionPinHashes), 1)
}

func TestDirectusServerSearch(t *testing.T) {
	srv := NewDirectusServer(t, "tok")
	c := newDirectusClient(t, srv, "tok")
	ctx := context.Background()

	anna := srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "Anna", LastName: "Smit"})
	bert := srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "Bert", LastName: "Jansen"})
	current := srv.Insert(api.CollectionMembershipTypes, map[string]any{"name": "2026", "end": "2027-08-31"})
	expired := srv.Insert(api.CollectionMembershipTypes, map[string]any{"name": "2020", "end": "2021-08-31"})
	srv.Insert(api.CollectionMemberships, map[string]any{"member": anna, "type": current})
	srv.Insert(api.CollectionMemberships, map[string]any{"member": bert, "type": expired})

	tests := []struct {
		name       string
		collection string
		query      api.Query
		want       []float64
	}{
		{
			name:       "eq",
			collection: api.CollectionMembers,
			query:      api.Query{Filter: api.Filter{"first_name": api.Eq("Bert")}},
			want:       []float64{float64(bert)},
		},
		{
			name:       "in",
			collection: api.CollectionMembers,
			query:      api.Query{Filter: api.Filter{"id": api.In([]int{anna, bert})}},
			want:       []float64{float64(anna), float64(bert)},
		},
		{
			name:       "contains",
			collection: api.CollectionMembers,
			query:      api.Query{Filter: api.Filter{"last_name": api.Contains("ans")}},
			want:       []float64{float64(bert)},
		},
		{
			name:       "relation",
			collection: api.CollectionMemberships,
			query: api.Query{
				Filter: api.Filter{"type": map[string]any{"end": api.Gte("2026-10-18")}},
				Fields: []string{"member"},
			},
			want: []float64{float64(anna)},
		},
		{
			name:       "limit",
			collection: api.CollectionMembers,
			query:      api.Query{Limit: 1},
			want:       []float64{float64(anna)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := c.Search(ctx, tt.collection, tt.query)
			require.NoError(t, err)

			var rows []map[string]any
			require.NoError(t, json.Unmarshal(raw, &rows))
			var got []float64
			for _, row := range rows {
				if v, ok := row["member"]; ok && tt.collection == api.CollectionMemberships {
					got = append(got, v.(float64))
					continue
				}
				got = append(got, row["id"].(float64))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectusServerFieldExpansion(t *testing.T) {
	srv := NewDirectusServer(t, "tok")
	c := newDirectusClient(t, srv, "tok")

	member := srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "Anna", LastName: "Smit"})
	typ := srv.Insert(api.CollectionMembershipTypes, api.DirectusMembershipType{Name: "Full", Fee: 42.5, General: true})
	srv.Insert(api.CollectionMemberships, map[string]any{"member": member, "type": typ})

	raw, err := c.Search(context.Background(), api.CollectionMemberships, api.Query{
		Filter: api.Filter{"member": api.Eq(member)},
		Fields: []string{"*", "type.*"},
	})
	require.NoError(t, err)

	var rows []api.DirectusMembership
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Full", rows[0].Type.Name)
	assert.InDelta(t, 42.5, rows[0].Type.Fee, 0.001)
	assert.True(t, rows[0].Type.General)
}

func TestDirectusServerGetQuery(t *testing.T) {
	srv := NewDirectusServer(t, "tok")
	c := newDirectusClient(t, srv, "tok")

	for range 3 {
		srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "X", LastName: "Y", Active: ptr(true)})
	}

	query, err := api.Query{Filter: api.Filter{"id": api.Gte(2)}, Fields: []string{"id"}, Limit: api.NoLimit}.Values()
	require.NoError(t, err)

	raw, err := c.Request(context.Background(), http.MethodGet, api.CollectionPath(api.CollectionMembers), query, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":2},{"id":3}]`, string(raw))
}

func TestDirectusServerValidation(t *testing.T) {
	srv := NewDirectusServer(t, "tok")
	c := newDirectusClient(t, srv, "tok")
	ctx := context.Background()
	srv.Insert(api.CollectionMembers, api.DirectusMember{FirstName: "Anna", LastName: "Smit"})

	tests := []struct {
		name   string
		call   func() error
		status int
	}{
		{
			name: "unknown collection",
			call: func() error {
				_, err := c.Request(ctx, http.MethodGet, api.CollectionPath("Secrets"), nil, nil)
				return err
			},
			status: http.StatusBadRequest,
		},
		{
			name: "search on unknown collection",
			call: func() error {
				_, err := c.Search(ctx, "Secrets", api.Query{})
				return err
			},
			status: http.StatusForbidden,
		},
		{
			name: "create without object body",
			call: func() error {
				_, err := c.Request(ctx, http.MethodPost, api.CollectionPath(api.CollectionMembers), nil, []string{"x"})
				return err
			},
			status: http.StatusBadRequest,
		},
		{
			name: "unsupported operator",
			call: func() error {
				_, err := c.Search(ctx, api.CollectionMembers, api.Query{Filter: api.Filter{"id": map[string]any{"_regex": "x"}}})
				return err
			},
			status: http.StatusBadRequest,
		},
		{
			name: "limit below minus one",
			call: func() error {
				_, err := c.Search(ctx, api.CollectionMembers, api.Query{Limit: -5})
				return err
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var re *api.ResponseError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.status, re.StatusCode)
			assert.True(t, strings.Contains(string(re.Body), "errors"))
		})
	}
}
