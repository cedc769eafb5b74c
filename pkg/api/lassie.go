package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ModelPath is the single RPC endpoint of the Lassie API.
const ModelPath = "api/v2/model"

// Lassie models and methods used by this module.
const (
	ModelPerson     = "person_model"
	ModelMembership = "membership_model"
	ModelCommittee  = "committee_model"

	MethodGetPersons          = "get_persons"
	MethodGetPerson           = "get_person"
	MethodGetPersonOptions    = "get_person_options"
	MethodGetPinHash          = "get_pin_hash"
	MethodSetPinHash          = "set_pin_hash"
	MethodCreatePerson        = "create_person"
	MethodUpdatePerson        = "update_person"
	MethodGetMemberships      = "get_memberships"
	MethodGetPayable          = "get_payable_memberships"
	MethodGetActive           = "get_active_memberships"
	MethodGetCommittees       = "get_committees"
	MethodGetPersonCommittees = "get_person_committees"
)

// LassieClient talks to the legacy Lassie RPC API.
//
// Every call goes to /api/v2/model with model_name and method_name in the
// query string. Replies are raw JSON; failures are signalled by an embedded
// status_code field, whatever the HTTP status says.
type LassieClient struct {
	*transport
}

// NewLassieClient creates a new LassieClient, with reasonable defaults
func NewLassieClient(server string, opts ...ClientOption) (*LassieClient, error) {
	t, err := newTransport(server, opts)
	if err != nil {
		return nil, err
	}
	return &LassieClient{transport: t}, nil
}

// Request calls method on model. For GET the params travel in the query
// string, for every other verb they are form encoded in the body.
func (c *LassieClient) Request(ctx context.Context, method, model, methodName string, params url.Values) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("model_name", model)
	query.Set("method_name", methodName)

	var body string
	if method == http.MethodGet {
		for k, vs := range params {
			for _, v := range vs {
				query.Add(k, v)
			}
		}
	} else {
		body = params.Encode()
	}

	endpoint, err := c.endpoint(ModelPath, query)
	if err != nil {
		return nil, err
	}

	var req *http.Request
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(body))
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	status, raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if embedded, message, ok := lassieStatus(raw); ok && !isSuccess(embedded) {
		return nil, &ResponseError{StatusCode: embedded, Message: message, Body: raw}
	}
	if !isSuccess(status) {
		return nil, &ResponseError{StatusCode: status, Body: raw}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty reply from %s.%s", model, methodName)
	}
	return raw, nil
}

// lassieStatus reads the embedded status of a reply. ok is false when the
// reply is not an object or carries no status_code.
func lassieStatus(raw []byte) (code int, message string, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, "", false
	}
	var envelope struct {
		StatusCode *json.Number `json:"status_code"`
		Message    string       `json:"message"`
		Error      string       `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || envelope.StatusCode == nil {
		return 0, "", false
	}
	n, err := envelope.StatusCode.Int64()
	if err != nil {
		return 0, "", false
	}
	message = envelope.Message
	if message == "" {
		message = envelope.Error
	}
	return int(n), message, true
}
