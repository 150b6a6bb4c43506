package teradata

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"ansilo/internal/ierrors"
)

// execRequest/execResponse are the Execute RPC's wire shape, carried as
// structpb.Struct so the client needs no generated message type: fields
// are {database, sql, params, tx_id} in, {columns, rows, affected} out.
// "rows" is a list of same-length lists in column order; every value is a
// structpb.Value, so integers arrive as float64 and must be rounded back
// by the caller where an integral SQLIL type is expected.
func execRequest(database, sqlText string, params []any, txID string) (*structpb.Struct, error) {
	fields := map[string]any{
		"database": database,
		"sql":      sqlText,
		"params":   params,
	}
	if txID != "" {
		fields["tx_id"] = txID
	}
	return structpb.NewStruct(fields)
}

func callExecute(ctx context.Context, cc grpcInvoker, req *structpb.Struct) (*structpb.Struct, error) {
	resp := &structpb.Struct{}
	if err := cc.Invoke(ctx, "/ansilo.teradata.Bridge/Execute", req, resp); err != nil {
		return nil, ierrors.New(ierrors.Remote, "teradata.Execute", err)
	}
	return resp, nil
}

func callListColumns(ctx context.Context, cc grpcInvoker, database, filter string) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"database": database, "filter": filter})
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "teradata.ListColumns", err)
	}
	resp := &structpb.Struct{}
	if err := cc.Invoke(ctx, "/ansilo.teradata.Bridge/ListColumns", req, resp); err != nil {
		return nil, ierrors.New(ierrors.Remote, "teradata.ListColumns", err)
	}
	return resp, nil
}

func callTxControl(ctx context.Context, cc grpcInvoker, method, database, txID string) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]any{"database": database, "tx_id": txID})
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "teradata."+method, err)
	}
	resp := &structpb.Struct{}
	if err := cc.Invoke(ctx, "/ansilo.teradata.Bridge/"+method, req, resp); err != nil {
		return nil, ierrors.New(ierrors.Remote, "teradata."+method, err)
	}
	return resp, nil
}

// grpcInvoker is the single method this package needs from *grpc.ClientConn,
// narrowed so bridge.go's request builders are testable against a fake.
type grpcInvoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}
