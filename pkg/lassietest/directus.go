// Package lassietest provides in-memory fakes of the membership backends
// for tests: a Directus items API and a signed Lassie RPC endpoint.
package lassietest

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

func init() {
	chi.RegisterMethod(api.MethodSearch)
}

// defaultLimit is the page size Directus applies when a query sets none.
const defaultLimit = 100

// directusRelations lists the many-to-one fields per collection and the
// collection they point to.
var directusRelations = map[string]map[string]string{
	api.CollectionMembers: {
		"address": api.CollectionMemberAddresses,
	},
	api.CollectionPinHashes: {
		"member": api.CollectionMembers,
	},
	api.CollectionCommitteeMembers: {
		"committee": api.CollectionCommittees,
		"member":    api.CollectionMembers,
	},
	api.CollectionMemberships: {
		"member": api.CollectionMembers,
		"type":   api.CollectionMembershipTypes,
	},
}

// DirectusServer is a fake Directus instance holding its collections in
// memory. Requests must carry the static token the server was created with.
type DirectusServer struct {
	*httptest.Server

	t         testing.TB
	token     string
	validator *requestValidator

	mu     sync.Mutex
	tables map[string][]map[string]any
	nextID map[string]int
}

// NewDirectusServer starts a fake Directus that accepts token. The server is
// closed when the test ends.
func NewDirectusServer(t testing.TB, token string) *DirectusServer {
	t.Helper()

	validator, err := newRequestValidator()
	if err != nil {
		t.Fatalf("directus fake: %v", err)
	}

	s := &DirectusServer{
		t:         t,
		token:     token,
		validator: validator,
		tables:    make(map[string][]map[string]any),
		nextID:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *DirectusServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Use(s.validator.middleware)
	r.Route("/items/{collection}", func(r chi.Router) {
		r.Use(knownCollection)
		r.Get("/", s.readItems)
		r.Method(api.MethodSearch, "/", http.HandlerFunc(s.searchItems))
		r.Post("/", s.createItem)
		r.Get("/{id}", s.readItem)
		r.Patch("/{id}", s.updateItem)
	})
	return r
}

func (s *DirectusServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "":
			writeErrors(w, http.StatusForbidden, "FORBIDDEN", "You don't have permission to access this.")
		case "Bearer " + s.token:
			next.ServeHTTP(w, r)
		default:
			writeErrors(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid user credentials.")
		}
	})
}

// directusCollections are the collections the fake serves.
var directusCollections = []string{
	api.CollectionMembers,
	api.CollectionMemberAddresses,
	api.CollectionPinHashes,
	api.CollectionCommittees,
	api.CollectionCommitteeMembers,
	api.CollectionMemberships,
	api.CollectionMembershipTypes,
}

func knownCollection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(directusCollections, chi.URLParam(r, "collection")) {
			writeErrors(w, http.StatusForbidden, "FORBIDDEN", "You don't have permission to access this.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *DirectusServer) readItems(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromValues(r.URL.Query())
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	s.respondQuery(w, chi.URLParam(r, "collection"), q)
}

func (s *DirectusServer) searchItems(w http.ResponseWriter, r *http.Request) {
	var body api.SearchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	s.respondQuery(w, chi.URLParam(r, "collection"), body.Query)
}

func (s *DirectusServer) respondQuery(w http.ResponseWriter, collection string, q api.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]map[string]any, 0)
	for _, row := range s.tables[collection] {
		ok, err := s.match(collection, row, q.Filter)
		if err != nil {
			writeErrors(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return
		}
		if ok {
			rows = append(rows, s.project(collection, row, q.Fields))
		}
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writeData(w, http.StatusOK, rows)
}

func (s *DirectusServer) readItem(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.find(collection, id)
	if row == nil {
		writeErrors(w, http.StatusNotFound, "NOT_FOUND", "Item not found.")
		return
	}
	writeData(w, http.StatusOK, maps.Clone(row))
}

func (s *DirectusServer) createItem(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.insert(chi.URLParam(r, "collection"), body)
	writeData(w, http.StatusOK, maps.Clone(row))
}

func (s *DirectusServer) updateItem(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.find(collection, id)
	if row == nil {
		writeErrors(w, http.StatusNotFound, "NOT_FOUND", "Item not found.")
		return
	}
	delete(body, "id")
	maps.Copy(row, body)
	writeData(w, http.StatusOK, maps.Clone(row))
}

// insert stores row, assigning the next id when it has none.
// Callers hold s.mu.
func (s *DirectusServer) insert(collection string, row map[string]any) map[string]any {
	id := toInt(row["id"])
	if id <= 0 {
		s.nextID[collection]++
		id = s.nextID[collection]
	} else if id > s.nextID[collection] {
		s.nextID[collection] = id
	}
	row["id"] = float64(id)
	s.tables[collection] = append(s.tables[collection], row)
	return row
}

// find returns the stored row, or nil. Callers hold s.mu.
func (s *DirectusServer) find(collection string, id int) map[string]any {
	for _, row := range s.tables[collection] {
		if toInt(row["id"]) == id {
			return row
		}
	}
	return nil
}

// Insert stores item in collection and returns its id. item is anything
// that encodes to a JSON object, typically one of the api.Directus records.
// A zero id is replaced by the next free one.
func (s *DirectusServer) Insert(collection string, item any) int {
	s.t.Helper()

	buf, err := json.Marshal(item)
	if err != nil {
		s.t.Fatalf("directus fake: encode %s item: %v", collection, err)
	}
	var row map[string]any
	if err := json.Unmarshal(buf, &row); err != nil {
		s.t.Fatalf("directus fake: %s item is not an object: %v", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return toInt(s.insert(collection, row)["id"])
}

// Rows returns a copy of every row of collection.
func (s *DirectusServer) Rows(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, len(s.tables[collection]))
	for i, row := range s.tables[collection] {
		out[i] = maps.Clone(row)
	}
	return out
}

// Row returns a copy of one row, or nil.
func (s *DirectusServer) Row(collection string, id int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.find(collection, id))
}

func queryFromValues(v url.Values) (api.Query, error) {
	var q api.Query
	if raw := v.Get("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Filter); err != nil {
			return q, err
		}
	}
	q.Fields = v["fields[]"]
	if raw := v.Get("fields"); raw != "" {
		q.Fields = append(q.Fields, strings.Split(raw, ",")...)
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, err
		}
		q.Limit = n
	}
	return q, nil
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeErrors(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]any{{
			"message":    message,
			"extensions": map[string]string{"code": code},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
