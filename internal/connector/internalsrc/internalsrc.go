// Package internalsrc implements the node-local "internal" connector: the
// three self-describing entities every node exposes regardless of which
// remote sources it federates -- `jobs`, `job_triggers` and
// `service_users` (the scheduled-query and service-account bookkeeping
// tables of the original implementation, see
// original_source/ansilo-connectors/internal/src/entity_searcher.rs).
//
// It is backed by internal/connector/memory rather than reimplementing row
// storage, since the internal entities live for the lifetime of the
// process exactly like the memory connector's tables do; this package only
// supplies the fixed schema of those tables, which start empty.
package internalsrc

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/connector/memory"
	"ansilo/internal/data"
	"ansilo/internal/entity"
)

const (
	EntityJobs          entity.ID = "jobs"
	EntityJobTriggers   entity.ID = "job_triggers"
	EntityServiceUsers  entity.ID = "service_users"
)

func init() {
	connector.Register(&Connector{})
}

func jobsConfig() *entity.Config {
	return &entity.Config{
		ID:          EntityJobs,
		Name:        "Jobs",
		Description: "Queries configured to execute on a regular basis",
		Attributes: []entity.Attribute{
			{ID: "id", Type: data.Utf8String(nil), Nullable: true},
			{ID: "name", Type: data.Utf8String(nil), Nullable: true},
			{ID: "description", Type: data.Utf8String(nil), Nullable: true},
			{ID: "service_user_id", Type: data.Utf8String(nil), Nullable: true},
			{ID: "sql", Type: data.Utf8String(nil), Nullable: true},
		},
	}
}

func jobTriggersConfig() *entity.Config {
	return &entity.Config{
		ID:          EntityJobTriggers,
		Name:        "Job Triggers",
		Description: "Triggers define when a job is to be run",
		Attributes: []entity.Attribute{
			{ID: "job_id", Type: data.Utf8String(nil), Nullable: true},
			{ID: "cron", Type: data.Utf8String(nil), Nullable: true},
		},
		Constraints: []entity.Constraint{
			{
				Kind:             entity.ConstraintForeignKey,
				Attributes:       []string{"job_id"},
				TargetEntity:     EntityJobs,
				AttributeMapping: map[string]string{"job_id": "id"},
			},
		},
	}
}

func serviceUsersConfig() *entity.Config {
	return &entity.Config{
		ID:          EntityServiceUsers,
		Name:        "Service Users",
		Description: "Service users define how the service authenticates itself to run scheduled jobs",
		Attributes: []entity.Attribute{
			{ID: "id", Type: data.Utf8String(nil), Nullable: true},
			{ID: "username", Type: data.Utf8String(nil), Nullable: true},
			{ID: "description", Type: data.Utf8String(nil), Nullable: true},
		},
	}
}

// Configs returns the entity configs for all three internal entities, in
// the fixed order the original connector's discover() returned them.
func Configs() []*entity.Config {
	return []*entity.Config{jobsConfig(), jobTriggersConfig(), serviceUsersConfig()}
}

// NewDatabase builds the in-process memory.Database backing the internal
// connector, with all three tables created and empty.
func NewDatabase() *memory.Database {
	db := memory.NewDatabase()
	for _, cfg := range Configs() {
		db.CreateTable(cfg)
	}
	return db
}

// Connector adapts memory.Connector under the "internal" name so node
// configs can reference it like any other source. NewConnectionPool uses a
// *memory.Database passed as opts as given, and falls back to NewDatabase's
// fixed three-entity schema only when opts is not one.
type Connector struct {
	inner memory.Connector
}

func (Connector) Name() connector.Name { return "internal" }

func (c Connector) NewConnectionPool(opts connector.Options) (connector.ConnectionPool, error) {
	db, ok := opts.(*memory.Database)
	if !ok || db == nil {
		db = NewDatabase()
	}
	return c.inner.NewConnectionPool(db)
}

var _ connector.Connector = Connector{}

// Discover is a convenience wrapper returning the three internal entity
// configs without going through a live connection, since they are fixed and
// never actually "discovered" from anywhere.
func Discover(_ context.Context) []*entity.Config {
	return Configs()
}
