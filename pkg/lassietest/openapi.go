package lassietest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/eshdavinci/davinci-api/pkg/api"
)

//go:embed directus.yaml
var directusSpec []byte

// requestValidator rejects requests that do not match the Directus
// document. SEARCH has no place in an OpenAPI path item, so its body is
// checked against the SearchBody schema directly.
type requestValidator struct {
	router routers.Router
	search *openapi3.Schema
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(directusSpec)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	ref, ok := doc.Components.Schemas["SearchBody"]
	if !ok || ref.Value == nil {
		return nil, errors.New("document has no SearchBody schema")
	}
	return &requestValidator{router: router, search: ref.Value}, nil
}

func (v *requestValidator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := v.validate(r); err != nil {
			writeErrors(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (v *requestValidator) validate(r *http.Request) error {
	if r.Method == api.MethodSearch {
		return v.validateSearch(r)
	}

	route, params, err := v.router.FindRoute(r)
	if err != nil {
		return err
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	})
}

func (v *requestValidator) validateSearch(r *http.Request) error {
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	r.Body = io.NopCloser(bytes.NewReader(buf))

	var body any
	if err := json.Unmarshal(buf, &body); err != nil {
		return fmt.Errorf("decode search body: %w", err)
	}
	return v.search.VisitJSON(body)
}
