package emulator

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		kind   routeKind
		vars   map[string]string
	}{
		{
			name:   "next invocation",
			method: http.MethodGet,
			path:   "/2018-06-01/runtime/invocation/next",
			kind:   routeNextInvocation,
			vars:   map[string]string{"version": "2018-06-01"},
		},
		{
			name:   "post response",
			method: http.MethodPost,
			path:   "/2018-06-01/runtime/invocation/000000000001/response",
			kind:   routePostResponse,
			vars:   map[string]string{"version": "2018-06-01", "requestId": "000000000001"},
		},
		{
			name:   "post error",
			method: http.MethodPost,
			path:   "/2018-06-01/runtime/invocation/000000000007/error",
			kind:   routePostError,
			vars:   map[string]string{"version": "2018-06-01", "requestId": "000000000007"},
		},
		{
			name:   "init error",
			method: http.MethodPost,
			path:   "/2018-06-01/runtime/init/error",
			kind:   routeInitError,
			vars:   map[string]string{"version": "2018-06-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, vars, ok := matchRoute(tt.method, tt.path)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.vars, vars)
		})
	}
}

func TestMatchRouteRejectsUnknown(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"wrong method", http.MethodPost, "/2018-06-01/runtime/invocation/next"},
		{"wrong segment", http.MethodGet, "/2018-06-01/runtime/telemetry/next"},
		{"too few segments", http.MethodGet, "/runtime/invocation/next"},
		{"too many segments", http.MethodPost, "/2018-06-01/runtime/invocation/1/response/extra"},
		{"unrelated", http.MethodGet, "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, vars, ok := matchRoute(tt.method, tt.path)
			assert.False(t, ok)
			assert.Equal(t, routeUnknown, kind)
			assert.Nil(t, vars)
		})
	}
}
