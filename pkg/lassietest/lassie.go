package lassietest

import (
	"cmp"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	openapiTypes "github.com/oapi-codegen/runtime/types"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

// lassieError is a failure reported inside a Lassie reply body.
type lassieError struct {
	status  int
	message string
}

func (e *lassieError) Error() string { return e.message }

type lassieRoute struct {
	method string
	handle func(params url.Values) (any, error)
}

// LassieServer is a fake Lassie RPC endpoint. Every request must be signed
// with the key and secret the server was created with.
type LassieServer struct {
	*httptest.Server

	key    string
	secret string
	routes map[string]lassieRoute

	mu          sync.Mutex
	persons     map[int]api.LassiePerson
	pins        map[int]string
	memberships []api.LassieMembership
	committees  []api.LassieCommittee
	seats       []api.LassieCommitteeMember
	options     []api.LassieOption
	nextID      int
}

// NewLassieServer starts a fake Lassie that accepts requests signed with key
// and secret. The server is closed when the test ends.
func NewLassieServer(t testing.TB, key, secret string) *LassieServer {
	t.Helper()

	s := &LassieServer{
		key:     key,
		secret:  secret,
		persons: make(map[int]api.LassiePerson),
		pins:    make(map[int]string),
	}
	s.routes = map[string]lassieRoute{
		api.ModelPerson + "." + api.MethodGetPersons:             {http.MethodGet, s.getPersons},
		api.ModelPerson + "." + api.MethodGetPerson:              {http.MethodGet, s.getPerson},
		api.ModelPerson + "." + api.MethodGetPersonOptions:       {http.MethodGet, s.getPersonOptions},
		api.ModelPerson + "." + api.MethodGetPinHash:             {http.MethodGet, s.getPinHash},
		api.ModelPerson + "." + api.MethodSetPinHash:             {http.MethodPost, s.setPinHash},
		api.ModelPerson + "." + api.MethodCreatePerson:           {http.MethodPost, s.createPerson},
		api.ModelPerson + "." + api.MethodUpdatePerson:           {http.MethodPost, s.updatePerson},
		api.ModelMembership + "." + api.MethodGetMemberships:     {http.MethodGet, s.getMemberships},
		api.ModelMembership + "." + api.MethodGetPayable:         {http.MethodGet, s.getPayable},
		api.ModelMembership + "." + api.MethodGetActive:          {http.MethodGet, s.getActive},
		api.ModelCommittee + "." + api.MethodGetCommittees:       {http.MethodGet, s.getCommittees},
		api.ModelCommittee + "." + api.MethodGetPersonCommittees: {http.MethodGet, s.getPersonCommittees},
	}

	r := chi.NewRouter()
	r.Use(s.verify)
	r.Get("/"+api.ModelPath, s.dispatch)
	r.Post("/"+api.ModelPath, s.dispatch)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// verify checks the request signature. The nonce is not checked for reuse,
// matching the real backend.
func (s *LassieServer) verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeLassieError(w, http.StatusBadRequest, &lassieError{http.StatusBadRequest, err.Error()})
			return
		}

		key := r.Form.Get("api_key")
		content := r.Form.Get("api_hash_content")
		hash := r.Form.Get("api_hash")
		switch {
		case key != s.key:
			writeLassieError(w, http.StatusUnauthorized, &lassieError{http.StatusUnauthorized, "unknown api key"})
		case content == "" || !api.VerifyHash(key, content, s.secret, hash):
			writeLassieError(w, http.StatusForbidden, &lassieError{http.StatusForbidden, "invalid api hash"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *LassieServer) dispatch(w http.ResponseWriter, r *http.Request) {
	name := r.Form.Get("model_name") + "." + r.Form.Get("method_name")
	route, ok := s.routes[name]
	if !ok {
		writeLassieError(w, http.StatusOK, &lassieError{http.StatusNotFound, "unknown method " + name})
		return
	}
	if route.method != r.Method {
		writeLassieError(w, http.StatusOK, &lassieError{http.StatusMethodNotAllowed, name + " requires " + route.method})
		return
	}

	s.mu.Lock()
	out, err := route.handle(r.Form)
	s.mu.Unlock()

	if err != nil {
		lerr, ok := err.(*lassieError)
		if !ok {
			lerr = &lassieError{http.StatusInternalServerError, err.Error()}
		}
		// Lassie reports failures in the body of a 200 reply.
		writeLassieError(w, http.StatusOK, lerr)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeLassieError(w http.ResponseWriter, status int, err *lassieError) {
	writeJSON(w, status, api.LassieResult{
		StatusCode: err.status,
		Success:    false,
		Message:    err.message,
	})
}

func okResult() api.LassieResult {
	return api.LassieResult{StatusCode: http.StatusOK, Success: true}
}

func intParam(params url.Values, key string) (int, error) {
	n, err := strconv.Atoi(params.Get(key))
	if err != nil {
		return 0, &lassieError{http.StatusBadRequest, fmt.Sprintf("parameter %s must be a number", key)}
	}
	return n, nil
}

func dateParam(params url.Values, key string) (*openapiTypes.Date, error) {
	raw := params.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(openapiTypes.DateFormat, raw)
	if err != nil {
		return nil, &lassieError{http.StatusBadRequest, fmt.Sprintf("parameter %s must be a date", key)}
	}
	return &openapiTypes.Date{Time: t}, nil
}

func (s *LassieServer) lookup(params url.Values, key string) (api.LassiePerson, error) {
	id, err := intParam(params, key)
	if err != nil {
		return api.LassiePerson{}, err
	}
	p, found := s.persons[id]
	if !found {
		return api.LassiePerson{}, &lassieError{http.StatusNotFound, "person not found"}
	}
	return p, nil
}

func (s *LassieServer) getPersons(url.Values) (any, error) {
	out := make([]api.LassiePerson, 0, len(s.persons))
	for _, id := range slices.Sorted(maps.Keys(s.persons)) {
		out = append(out, s.persons[id])
	}
	return out, nil
}

func (s *LassieServer) getPerson(params url.Values) (any, error) {
	return s.lookup(params, "id")
}

func (s *LassieServer) getPersonOptions(url.Values) (any, error) {
	return append([]api.LassieOption{}, s.options...), nil
}

func (s *LassieServer) getPinHash(params url.Values) (any, error) {
	p, err := s.lookup(params, "id")
	if err != nil {
		return nil, err
	}
	return api.LassiePinHash{Hash: s.pins[p.Id]}, nil
}

func (s *LassieServer) setPinHash(params url.Values) (any, error) {
	p, err := s.lookup(params, "id")
	if err != nil {
		return nil, err
	}
	hash := params.Get("hash")
	if hash == "" {
		return nil, &lassieError{http.StatusBadRequest, "hash is required"}
	}
	s.pins[p.Id] = hash
	return okResult(), nil
}

func (s *LassieServer) createPerson(params url.Values) (any, error) {
	if params.Get("first_name") == "" || params.Get("last_name") == "" {
		return nil, &lassieError{http.StatusBadRequest, "first_name and last_name are required"}
	}
	birthdate, err := dateParam(params, "birthdatebug")
	if err != nil {
		return nil, err
	}
	since, err := dateParam(params, "member_since")
	if err != nil {
		return nil, err
	}

	s.nextID++
	p := api.LassiePerson{
		Id:             s.nextID,
		FirstName:      params.Get("first_name"),
		Infix:          params.Get("infix"),
		LastName:       params.Get("last_name"),
		Active:         true,
		EmailPrimary:   params.Get("email_primary"),
		PhoneHome:      params.Get("phone_home"),
		Birthdate:      birthdate,
		DepartmentId:   params.Get("department_id"),
		Study:          params.Get("study"),
		MemberSince:    since,
		AddressStreet:  params.Get("address_street"),
		AddressNumber:  params.Get("address_number"),
		AddressZip:     params.Get("address_zip"),
		AddressCity:    params.Get("address_city"),
		AddressCountry: params.Get("address_country"),
	}
	s.persons[p.Id] = p
	return p, nil
}

func (s *LassieServer) updatePerson(params url.Values) (any, error) {
	p, err := s.lookup(params, "id")
	if err != nil {
		return nil, err
	}
	set := func(key string, field *string) {
		if _, present := params[key]; present {
			*field = params.Get(key)
		}
	}
	set("first_name", &p.FirstName)
	set("infix", &p.Infix)
	set("last_name", &p.LastName)
	set("phone_home", &p.PhoneHome)
	set("email_primary", &p.EmailPrimary)
	set("study", &p.Study)
	s.persons[p.Id] = p
	return okResult(), nil
}

func (s *LassieServer) membershipsOf(params url.Values, keep func(api.LassieMembership) bool) (any, error) {
	id, err := intParam(params, "person_id")
	if err != nil {
		return nil, err
	}
	out := make([]api.LassieMembership, 0)
	for _, m := range s.memberships {
		if m.PersonId == id && keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *LassieServer) getMemberships(params url.Values) (any, error) {
	return s.membershipsOf(params, func(api.LassieMembership) bool { return true })
}

// getPayable lists memberships that have not been paid, and so are not
// active yet.
func (s *LassieServer) getPayable(params url.Values) (any, error) {
	return s.membershipsOf(params, func(m api.LassieMembership) bool { return !m.Active })
}

func (s *LassieServer) getActive(params url.Values) (any, error) {
	day, err := dateParam(params, "date")
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, &lassieError{http.StatusBadRequest, "date is required"}
	}
	out := make([]api.LassieMembership, 0)
	for _, m := range s.memberships {
		if !m.Active {
			continue
		}
		if m.ExpiryDate != nil && m.ExpiryDate.Time.Before(day.Time) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *LassieServer) getCommittees(url.Values) (any, error) {
	out := slices.Clone(s.committees)
	slices.SortFunc(out, func(a, b api.LassieCommittee) int { return cmp.Compare(a.Id, b.Id) })
	return out, nil
}

func (s *LassieServer) getPersonCommittees(params url.Values) (any, error) {
	id, err := intParam(params, "person_id")
	if err != nil {
		return nil, err
	}
	out := make([]api.LassieCommitteeMember, 0)
	for _, seat := range s.seats {
		if seat.PersonId == id {
			out = append(out, seat)
		}
	}
	return out, nil
}

// AddPerson stores p and returns its id. A zero id is replaced by the next
// free one.
func (s *LassieServer) AddPerson(p api.LassiePerson) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Id <= 0 {
		s.nextID++
		p.Id = s.nextID
	} else if p.Id > s.nextID {
		s.nextID = p.Id
	}
	s.persons[p.Id] = p
	return p.Id
}

// Person returns the stored person.
func (s *LassieServer) Person(id int) (api.LassiePerson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.persons[id]
	return p, found
}

// SetPin stores the PIN hash of a person.
func (s *LassieServer) SetPin(id int, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[id] = hash
}

// Pin returns the stored PIN hash of a person.
func (s *LassieServer) Pin(id int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[id]
}

// AddMembership stores a membership.
func (s *LassieServer) AddMembership(m api.LassieMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships = append(s.memberships, m)
}

// AddCommittee stores a committee.
func (s *LassieServer) AddCommittee(c api.LassieCommittee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committees = append(s.committees, c)
}

// AddCommitteeSeat stores a committee membership.
func (s *LassieServer) AddCommitteeSeat(seat api.LassieCommitteeMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, seat)
}

// SetOptions replaces the person option dictionary.
func (s *LassieServer) SetOptions(options []api.LassieOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = slices.Clone(options)
}
