package model

import "strings"

// Entity is a startup (or founder) being profiled. Owned by the upstream catalog.
type Entity struct {
	ID     int64
	Name   string
	Domain string // canonical domain, empty when unknown
	Repo   string // primary code repository as "owner/name", empty when unknown
}

// HasDomain reports whether a canonical domain is known.
func (e Entity) HasDomain() bool {
	return strings.TrimSpace(e.Domain) != ""
}
