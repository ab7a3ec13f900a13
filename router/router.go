// Package router implements the priority-ordered trie matcher from signal
// type to handlers (spec component C4).
package router

import (
	"sort"
	"strings"

	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/signal"
)

// Predicate is an extra boolean gate attached to a route; a predicate that
// panics or returns false is treated as "no match" for that route (spec
// §4.1). Panics are recovered by Router.Lookup.
type Predicate func(sig *signal.Signal) bool

// Handler is the routing target. Equality for route removal is by pattern +
// this value's identity (handlers are compared with ==, so callers must
// pass the same value back to Remove).
type Handler interface{}

type route struct {
	pattern   string
	handler   Handler
	priority  int
	predicate Predicate
	order     int // registration order, for stable priority ties
}

type node struct {
	children map[string]*node
	exact    []*route // routes whose pattern terminates exactly here
	matchers []*route // predicate-gated routes attached at this path
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Router is a compile-once, lookup-many trie over dotted route patterns.
type Router struct {
	root     *node
	nextSeq  int
}

// New builds an empty Router.
func New() *Router {
	return &Router{root: newNode()}
}

// Add registers a route. priority must be in [-100, 100]. pattern segments
// are literal, "*" (exactly one segment), or "**" (one or more segments);
// two consecutive "**" segments, empty segments, or non [A-Za-z0-9_] literal
// characters are rejected at registration (spec §4.1, testable property 7).
func (r *Router) Add(pattern string, handler Handler, priority int, predicate Predicate) error {
	segs, err := validatePattern(pattern)
	if err != nil {
		return err
	}
	if priority < -100 || priority > 100 {
		return core.NewError("Router.Add", core.KindRouting, core.ErrInvalidPriority)
	}

	rt := &route{pattern: pattern, handler: handler, priority: priority, predicate: predicate, order: r.nextSeq}
	r.nextSeq++

	n := r.root
	for _, s := range segs {
		child, ok := n.children[s]
		if !ok {
			child = newNode()
			n.children[s] = child
		}
		n = child
	}
	if predicate != nil {
		n.matchers = append(n.matchers, rt)
	} else {
		n.exact = append(n.exact, rt)
	}
	return nil
}

// Remove deletes the route matching pattern+handler exactly. Removing the
// last route at a node leaves the node's children intact (spec §4.1).
func (r *Router) Remove(pattern string, handler Handler) {
	segs, err := validatePattern(pattern)
	if err != nil {
		return
	}
	n := r.root
	for _, s := range segs {
		child, ok := n.children[s]
		if !ok {
			return
		}
		n = child
	}
	n.exact = filterRoutes(n.exact, pattern, handler)
	n.matchers = filterRoutes(n.matchers, pattern, handler)
}

func filterRoutes(routes []*route, pattern string, handler Handler) []*route {
	out := routes[:0:0]
	for _, rt := range routes {
		if rt.pattern == pattern && rt.handler == handler {
			continue
		}
		out = append(out, rt)
	}
	return out
}

// Match is one ordered lookup hit.
type Match struct {
	Handler  Handler
	Pattern  string
	Priority int
}

// Lookup walks the trie collecting every handler whose pattern matches
// sig.Type (including wildcard expansions and matching predicates), then
// sorts by priority descending with registration order breaking ties
// (spec §4.1, testable property 6).
func (r *Router) Lookup(sig *signal.Signal) ([]Match, error) {
	if err := signal.ValidateType(sig.Type); err != nil {
		return nil, core.NewError("Router.Lookup", core.KindValidation, err)
	}
	segs := signal.Segments(sig.Type)

	var hits []*route
	r.collect(r.root, segs, sig, &hits)

	if len(hits) == 0 {
		return nil, core.NewError("Router.Lookup", core.KindRouting, core.ErrNoHandler)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].priority != hits[j].priority {
			return hits[i].priority > hits[j].priority
		}
		return hits[i].order < hits[j].order
	})

	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = Match{Handler: h.handler, Pattern: h.pattern, Priority: h.priority}
	}
	return out, nil
}

func (r *Router) collect(n *node, segs []string, sig *signal.Signal, hits *[]*route) {
	if len(segs) == 0 {
		r.evalMatchers(n.matchers, sig, hits)
		*hits = append(*hits, n.exact...)
		return
	}

	head, rest := segs[0], segs[1:]

	if child, ok := n.children[head]; ok {
		r.collect(child, rest, sig, hits)
	}
	if child, ok := n.children["*"]; ok {
		r.collect(child, rest, sig, hits)
	}
	if child, ok := n.children["**"]; ok {
		// "**" matches one or more remaining segments (len(segs) >= 1 here).
		r.evalMatchers(child.matchers, sig, hits)
		*hits = append(*hits, child.exact...)
	}
}

func (r *Router) evalMatchers(matchers []*route, sig *signal.Signal, hits *[]*route) {
	for _, m := range matchers {
		if safePredicate(m.predicate, sig) {
			*hits = append(*hits, m)
		}
	}
}

func safePredicate(p Predicate, sig *signal.Signal) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return p(sig)
}

func validatePattern(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, core.NewError("Router.Add", core.KindRouting, core.ErrInvalidPattern)
	}
	segs := strings.Split(pattern, ".")
	lastWasDouble := false
	for _, s := range segs {
		if s == "" {
			return nil, core.NewError("Router.Add", core.KindRouting, core.ErrInvalidPattern)
		}
		if s == "**" {
			if lastWasDouble {
				return nil, core.NewError("Router.Add", core.KindRouting, core.ErrInvalidPattern)
			}
			lastWasDouble = true
			continue
		}
		lastWasDouble = false
		if s == "*" {
			continue
		}
		if !isAlnumUnderscore(s) {
			return nil, core.NewError("Router.Add", core.KindRouting, core.ErrInvalidPattern)
		}
	}
	return segs, nil
}

func isAlnumUnderscore(s string) bool {
	for _, r := range s {
		if !(r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}
