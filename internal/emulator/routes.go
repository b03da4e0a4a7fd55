package emulator

import (
	"net/http"
	"strings"
)

type routeKind int

const (
	routeUnknown routeKind = iota
	routeNextInvocation
	routePostResponse
	routePostError
	routeInitError
)

func (k routeKind) String() string {
	switch k {
	case routeNextInvocation:
		return "next-invocation"
	case routePostResponse:
		return "post-response"
	case routePostError:
		return "post-error"
	case routeInitError:
		return "post-init-error"
	default:
		return "unknown"
	}
}

type route struct {
	method   string
	segments []string
	kind     routeKind
}

// The four runtime API operations. Path shapes are disjoint, so first match
// wins and the order only matters for determinism.
var routes = []route{
	{http.MethodGet, []string{"{version}", "runtime", "invocation", "next"}, routeNextInvocation},
	{http.MethodPost, []string{"{version}", "runtime", "invocation", "{requestId}", "response"}, routePostResponse},
	{http.MethodPost, []string{"{version}", "runtime", "invocation", "{requestId}", "error"}, routePostError},
	{http.MethodPost, []string{"{version}", "runtime", "init", "error"}, routeInitError},
}

// matchRoute classifies a request into one of the runtime API operations.
// Template segments are either literal or a single named wildcard; the
// extracted path variables are returned by name.
func matchRoute(method, path string) (routeKind, map[string]string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, r := range routes {
		if r.method != method || len(r.segments) != len(segments) {
			continue
		}
		vars := make(map[string]string, 2)
		matched := true
		for i, tmpl := range r.segments {
			if strings.HasPrefix(tmpl, "{") {
				vars[strings.Trim(tmpl, "{}")] = segments[i]
				continue
			}
			if tmpl != segments[i] {
				matched = false
				break
			}
		}
		if matched {
			return r.kind, vars, true
		}
	}
	return routeUnknown, nil, false
}
