package cli

import (
	"context"
	"errors"
	"fmt"
)

var errNoDataService = errors.New("data service is not configured")

// Count prints the number of rows in table that row-level security lets the
// signed-in user, or the anonymous role, see.
func (a *App) Count(ctx context.Context, table string) error {
	if a.data == nil {
		printlnFn("Counting is unavailable:", errNoDataService)
		return errNoDataService
	}

	n, err := a.data.Count(ctx, table, nil)
	if err != nil {
		printlnFn("Count failed:", describe(err))
		return err
	}
	printlnFn(fmt.Sprintf("%s: %d", table, n))
	return nil
}
