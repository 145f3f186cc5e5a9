package graph

import (
	"context"

	"github.com/pashagolub/pgxmock/v4"
)

// setupMockContext places the mock under the transaction key so that
// Store.conn() returns it instead of the (nil) pool.
func setupMockContext(mock pgxmock.PgxPoolIface) context.Context {
	return context.WithValue(context.Background(), txKey, mock)
}
