package cli

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

type route struct {
	method, pattern string
}

// RoutesCommand prints every registered method and pattern, sorted by pattern.
func RoutesCommand(handler http.Handler, out io.Writer) int {
	mux, ok := handler.(chi.Routes)
	if !ok {
		_, _ = fmt.Fprintln(out, "routes: handler is not a chi router")
		return 1
	}
	var routes []route
	err := chi.Walk(mux, func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, route{method: method, pattern: pattern})
		return nil
	})
	if err != nil {
		_, _ = fmt.Fprintf(out, "routes: %v\n", err)
		return 1
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].pattern == routes[j].pattern {
			return routes[i].method < routes[j].method
		}
		return routes[i].pattern < routes[j].pattern
	})
	for _, r := range routes {
		_, _ = fmt.Fprintf(out, "%-7s %s\n", r.method, r.pattern)
	}
	return 0
}
