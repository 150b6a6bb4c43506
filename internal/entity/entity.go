// Package entity holds the logical schema of a remote dataset: the
// EntityConfig/EntityId pair referenced throughout SQLIL, the connector
// interface, and the FDW IPC protocol.
package entity

import (
	"fmt"

	"ansilo/internal/data"
)

// ID is the stable identifier used in SQLIL references.
type ID string

// Config is the logical schema of one remote dataset (a "table" from the
// federation's point of view).
//
// Invariant: attribute ids are unique within the entity; constraint
// references resolve within the entity or to other declared entities (see
// Config.Validate).
type Config struct {
	ID          ID
	Name        string
	Description string
	Tags        []string
	Attributes  []Attribute
	Constraints []Constraint

	// Source is an opaque blob interpreted only by the owning connector,
	// e.g. {schema, table, attributeColumnMap} for relational connectors or
	// {database_name, collection_name} for Mongo. Each connector reads the
	// keys it understands directly from this map.
	Source map[string]any
}

// Attribute is one column-like field of an entity.
type Attribute struct {
	ID          string
	Type        data.Type
	Nullable    bool
	Description string
}

// ConstraintKind enumerates the constraint kinds an entity may declare.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
)

// Constraint is a unique or foreign-key constraint on an entity.
type Constraint struct {
	Kind ConstraintKind

	// Attributes is the local attribute list the constraint covers. For
	// ConstraintUnique this is the whole story.
	Attributes []string

	// The following only apply to ConstraintForeignKey.
	TargetEntity     ID
	AttributeMapping map[string]string // local attribute id -> target attribute id
}

// FindAttribute returns the named attribute, or false if the entity has none
// by that id.
func (c *Config) FindAttribute(id string) (Attribute, bool) {
	for _, a := range c.Attributes {
		if a.ID == id {
			return a, true
		}
	}
	return Attribute{}, false
}

// Validate checks the invariants of §3: attribute ids unique within the
// entity, and constraint references resolve within the entity (foreign key
// targets are checked against the supplied registry of all known entities,
// since they may point at another entity).
func (c *Config) Validate(all map[ID]*Config) error {
	seen := make(map[string]bool, len(c.Attributes))
	for _, a := range c.Attributes {
		if seen[a.ID] {
			return fmt.Errorf("entity %q: duplicate attribute id %q", c.ID, a.ID)
		}
		seen[a.ID] = true
	}

	for _, con := range c.Constraints {
		for _, attrID := range con.Attributes {
			if _, ok := seen[attrID]; !ok {
				return fmt.Errorf("entity %q: constraint references unknown attribute %q", c.ID, attrID)
			}
		}
		if con.Kind != ConstraintForeignKey {
			continue
		}
		target, ok := all[con.TargetEntity]
		if !ok {
			return fmt.Errorf("entity %q: foreign key references unknown entity %q", c.ID, con.TargetEntity)
		}
		targetAttrs := make(map[string]bool, len(target.Attributes))
		for _, a := range target.Attributes {
			targetAttrs[a.ID] = true
		}
		for local, remote := range con.AttributeMapping {
			if !seen[local] {
				return fmt.Errorf("entity %q: foreign key maps unknown local attribute %q", c.ID, local)
			}
			if !targetAttrs[remote] {
				return fmt.Errorf("entity %q: foreign key maps to unknown attribute %q on %q", c.ID, remote, con.TargetEntity)
			}
		}
	}
	return nil
}

// Registry is an immutable-after-start lookup table of every entity config
// known to the node (§5: "The entity config registry is immutable after
// node start").
type Registry struct {
	byID map[ID]*Config
}

func NewRegistry(configs ...*Config) (*Registry, error) {
	byID := make(map[ID]*Config, len(configs))
	for _, c := range configs {
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("entity %q registered more than once", c.ID)
		}
		byID[c.ID] = c
	}
	for _, c := range configs {
		if err := c.Validate(byID); err != nil {
			return nil, err
		}
	}
	return &Registry{byID: byID}, nil
}

func (r *Registry) Get(id ID) (*Config, bool) {
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) All() []*Config {
	out := make([]*Config, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}
