package httpadapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

//go:embed openapi.yaml
var openAPISpec []byte

var errSchemaViolation = errors.New("request does not match api schema")

// requestValidator checks requests against the embedded OpenAPI document.
// Routes are resolved once at startup from the mux patterns.
type requestValidator struct {
	doc    *openapi3.T
	routes map[string]*routers.Route
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return &requestValidator{doc: doc, routes: make(map[string]*routers.Route)}, nil
}

func (v *requestValidator) route(method, path string) (*routers.Route, error) {
	key := method + " " + path
	if route, ok := v.routes[key]; ok {
		return route, nil
	}
	item := v.doc.Paths.Find(path)
	if item == nil {
		return nil, fmt.Errorf("openapi path %s is not declared", path)
	}
	op := item.GetOperation(method)
	if op == nil {
		return nil, fmt.Errorf("openapi operation %s is not declared", key)
	}
	route := &routers.Route{
		Spec:      v.doc,
		Path:      path,
		PathItem:  item,
		Method:    method,
		Operation: op,
	}
	v.routes[key] = route
	return route, nil
}

// validated wraps a handler with request validation for one declared
// operation. Path parameters are read from the mux.
func (v *requestValidator) validated(method, path string, pathParams []string, next http.HandlerFunc) http.HandlerFunc {
	route, err := v.route(method, path)
	if err != nil {
		panic(err)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string, len(pathParams))
		for _, name := range pathParams {
			params[name] = r.PathValue(name)
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options:    &openapi3filter.Options{MultiError: false},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			var parseErr *openapi3filter.ParseError
			if errors.As(err, &parseErr) {
				writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
				return
			}
			writeError(w, fmt.Errorf("%w: %v", errSchemaViolation, err))
			return
		}
		next(w, r)
	}
}
