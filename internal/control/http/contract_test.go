// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"
)

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		doc, err := openapi3.NewLoader().LoadFromData(OpenAPISpec)
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

func validateOpenAPIResponse(t *testing.T, doc *openapi3.T, req *http.Request, rr *httptest.ResponseRecorder) {
	t.Helper()
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err, "openapi router init")

	route, pathParams, err := router.FindRoute(req)
	require.NoError(t, err, "openapi route lookup")

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status:  rr.Code,
		Header:  rr.Header(),
		Options: &openapi3filter.Options{IncludeResponseStatus: true},
	}
	input.SetBodyBytes(rr.Body.Bytes())

	require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input), "openapi response validation")
}

func TestContract_SessionResponses(t *testing.T) {
	doc := loadOpenAPIDoc(t)

	cases := []struct {
		name    string
		path    string
		partner http.HandlerFunc
		body    string
		status  int
	}{
		{"created", PathCreateSession, sessionPartner(`{"session":"abc"}`), `{"user_id":"u"}`, http.StatusOK},
		{"legacy route", PathCreateSessionLegacy, sessionPartner(`{"session_id":"abc"}`), `{"userId":"u"}`, http.StatusOK},
		{"validation", PathCreateSession, sessionPartner(`{}`), `{}`, http.StatusBadRequest},
		{"bad partner body", PathCreateSession, sessionPartner(`[]`), `{"user_id":"u"}`, http.StatusBadGateway},
		{"partner down", PathCreateSession, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("maintenance"))
		}, `{"user_id":"u"}`, http.StatusServiceUnavailable},
		{"partner timeout", PathCreateSession, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}, `{"user_id":"u"}`, http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.partner)
			req := postSession(tc.path, tc.body)
			rec := h.do(t, req)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			validateOpenAPIResponse(t, doc, req, rec)
		})
	}
}

func TestContract_Probes(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	h := newHarness(t, sessionPartner(`{}`))

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := h.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		validateOpenAPIResponse(t, doc, req, rec)
	}
}

func TestOpenAPI_Served(t *testing.T) {
	h := newHarness(t, sessionPartner(`{}`))
	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Equal(t, OpenAPISpec, rec.Body.Bytes())
}
