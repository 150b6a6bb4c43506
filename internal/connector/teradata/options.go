// Package teradata connects to Teradata through a gRPC sidecar rather than
// a native driver: no native Go Teradata driver exists, and the original
// JDBC-over-JNI bridge this connector is modelled on
// (original_source/ansilo-connectors/jdbc-teradata) has no Go equivalent to
// embed. The sidecar is expected to hold the real JDBC connection and
// expose it over a small RPC surface (Execute/ListColumns/DescribeTable/
// Begin/Commit/Rollback); this package renders SQL text with the same
// sqlgeneric planner/renderer the sqlite and mysql connectors share, then
// ships it to the sidecar instead of driving database/sql directly.
//
// Request/response payloads are google.golang.org/protobuf's well-known
// structpb.Struct rather than a codegen'd message type: the RPC methods are
// invoked by their literal method path via grpc.ClientConn.Invoke, the same
// codegen-free technique the bridge client this package is grounded on uses
// for its streaming RPC.
package teradata

import "fmt"

// Options configures a teradata connector instance. Addr is the sidecar's
// gRPC address; Database selects which Teradata database the sidecar's
// connection should target.
type Options struct {
	Addr     string
	Database string
	Insecure bool
}

func (o Options) validate() error {
	if o.Addr == "" {
		return fmt.Errorf("teradata: Options.Addr must not be empty")
	}
	if o.Database == "" {
		return fmt.Errorf("teradata: Options.Database must not be empty")
	}
	return nil
}
