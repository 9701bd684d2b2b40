package repo

import (
	"context"
	"fmt"

	"nudio/internal/infra"
	"nudio/internal/sqlinline"
)

// EnsureSchema creates the accounting tables if they do not exist.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	if _, err := sql.Exec(ctx, sqlinline.QCreateSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
