package store

import "fmt"

// DomainConflictError rejects an entry whose domain is already owned by a
// different instance. It carries the owner's identity and current port so
// the caller can decide how to resolve the collision.
type DomainConflictError struct {
	Instance  string
	Domain    string
	Owner     string
	OwnerPort uint16
}

func (e *DomainConflictError) Error() string {
	return fmt.Sprintf("store: domain %s requested by %s is already owned by %s (port %d)",
		e.Domain, e.Instance, e.Owner, e.OwnerPort)
}

// PortConflictError rejects an entry whose internal port is already claimed
// by a different instance of the same protocol family.
type PortConflictError struct {
	Instance    string
	Port        uint16
	Family      Family
	Owner       string
	OwnerDomain string
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("store: %s port %d requested by %s is already owned by %s (%s)",
		e.Family, e.Port, e.Instance, e.Owner, e.OwnerDomain)
}

// Validate checks a candidate entry against an existing snapshot before any
// mutation happens. Domains must be unique globally; internal ports must be
// unique within a protocol family. An entry never conflicts with itself, so
// in-place updates of an instance always pass.
func Validate(candidate Entry, existing []Entry) error {
	for _, e := range existing {
		if e.Instance == candidate.Instance {
			continue
		}
		if e.Domain == candidate.Domain {
			return &DomainConflictError{
				Instance:  candidate.Instance,
				Domain:    candidate.Domain,
				Owner:     e.Instance,
				OwnerPort: e.InternalPort,
			}
		}
		if e.Family == candidate.Family && e.InternalPort == candidate.InternalPort {
			return &PortConflictError{
				Instance:    candidate.Instance,
				Port:        candidate.InternalPort,
				Family:      candidate.Family,
				Owner:       e.Instance,
				OwnerDomain: e.Domain,
			}
		}
	}
	return nil
}
