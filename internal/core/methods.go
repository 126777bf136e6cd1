package core

import (
	"slices"
	"strings"

	"github.com/rprtr258/fun"
	"github.com/rprtr258/fun/set"
)

// MethodSet is an optional set of uppercase method names. Absent means
// unrestricted, it is never present and empty.
type MethodSet = fun.Option[set.Set[string]]

// ParseMethods parses comma separated method names. Tokens are trimmed and
// uppercased, empty ones are skipped. No tokens at all yields an absent set.
func ParseMethods(raw fun.Option[string]) MethodSet {
	s, ok := raw.Unpack()
	if !ok {
		return fun.Invalid[set.Set[string]]()
	}

	methods := set.New[string](0)
	for token := range strings.SplitSeq(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		methods.Add(strings.ToUpper(token))
	}
	if methods.Size() == 0 {
		return fun.Invalid[set.Set[string]]()
	}

	return fun.Valid(methods)
}

// IsAllowed rejects method if it is in disallowed or missing from allowed.
// Method is compared as received, without case folding.
func IsAllowed(method string, allowed, disallowed MethodSet) bool {
	if deny, ok := disallowed.Unpack(); ok && deny.Contains(method) {
		return false
	}
	if allow, ok := allowed.Unpack(); ok && !allow.Contains(method) {
		return false
	}
	return true
}

// MethodPolicy is the allow and deny lists, zero value allows everything.
type MethodPolicy struct {
	Allowed    MethodSet
	Disallowed MethodSet
}

func (p MethodPolicy) IsAllowed(method string) bool {
	return IsAllowed(method, p.Allowed, p.Disallowed)
}

func formatMethodSet(s MethodSet) string {
	methods, ok := s.Unpack()
	if !ok {
		return "*"
	}

	list := methods.List()
	slices.Sort(list)
	return strings.Join(list, ",")
}

func (p MethodPolicy) String() string {
	if !p.Allowed.Valid && !p.Disallowed.Valid {
		return "unrestricted"
	}
	return "allow=" + formatMethodSet(p.Allowed) + " deny=" + formatMethodSet(p.Disallowed)
}
