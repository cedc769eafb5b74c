package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// MethodSearch is the Directus SEARCH verb. It behaves like GET on a
// collection but carries the query in a JSON body.
const MethodSearch = "SEARCH"

// Directus collection names.
const (
	CollectionMembers          = "Members"
	CollectionMemberAddresses  = "MemberAddresses"
	CollectionPinHashes        = "PinHashes"
	CollectionCommittees       = "Committees"
	CollectionCommitteeMembers = "CommitteeMembers"
	CollectionMemberships      = "Memberships"
	CollectionMembershipTypes  = "MembershipTypes"
)

// DirectusClient talks to the Directus REST API.
//
// Responses are wrapped as {"data": ...}; failures carry an HTTP status and
// an {"errors": [...]} envelope.
type DirectusClient struct {
	*transport
}

// NewDirectusClient creates a new DirectusClient, with reasonable defaults
func NewDirectusClient(server string, opts ...ClientOption) (*DirectusClient, error) {
	t, err := newTransport(server, opts)
	if err != nil {
		return nil, err
	}
	return &DirectusClient{transport: t}, nil
}

// CollectionPath returns the path of a collection.
func CollectionPath(collection string) string {
	return "items/" + collection
}

// ItemsPath returns the path of one item of a collection.
func ItemsPath(collection string, id int) string {
	return fmt.Sprintf("items/%s/%d", collection, id)
}

// Request performs one call and returns the content of the data envelope.
// body is JSON encoded when non-nil.
func (c *DirectusClient) Request(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	status, raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &ResponseError{
			StatusCode: status,
			Message:    directusMessage(raw),
			Body:       raw,
		}
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode response envelope: %w", err)
	}
	return envelope.Data, nil
}

// Search runs a SEARCH on a collection.
func (c *DirectusClient) Search(ctx context.Context, collection string, q Query) (json.RawMessage, error) {
	return c.Request(ctx, MethodSearch, CollectionPath(collection), nil, SearchBody{Query: q})
}

// directusMessage extracts the human readable message of an error reply.
// Directus answers with {"errors":[{"message":...}]}; older deployments used
// a single {"error": ...} field.
func directusMessage(raw []byte) string {
	var envelope struct {
		Error  json.RawMessage `json:"error"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	if len(envelope.Errors) > 0 {
		return envelope.Errors[0].Message
	}
	if len(envelope.Error) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Error, &s); err == nil {
			return s
		}
		return string(envelope.Error)
	}
	return ""
}
