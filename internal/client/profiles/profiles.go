// Package profiles reads and writes application profiles through the
// generic data service.
package profiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/adullam/internal/client/backend"
	"github.com/dmitrijs2005/adullam/internal/client/models"
	"github.com/dmitrijs2005/adullam/internal/common"
)

type Repository interface {
	// Get returns the profile of userID, or (nil, nil) when no row exists.
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, p models.Profile) error
	Update(ctx context.Context, userID string, patch models.ProfilePatch) error
}

type DataRepository struct {
	data  backend.DataService
	table string
}

func NewRepository(data backend.DataService) *DataRepository {
	return &DataRepository{data: data, table: common.ProfilesTable}
}

var _ Repository = (*DataRepository)(nil)

func (r *DataRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	rows, err := r.data.Select(ctx, r.table, backend.Filter{backend.Eq("id", userID)}, nil)
	if backend.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	p := FromRow(rows[0])
	return &p, nil
}

func (r *DataRepository) Create(ctx context.Context, p models.Profile) error {
	row := backend.Row{
		"id":         p.ID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"avatar_url": p.AvatarURL,
		"is_admin":   p.IsAdmin,
	}
	if _, err := r.data.Insert(ctx, r.table, row); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *DataRepository) Update(ctx context.Context, userID string, patch models.ProfilePatch) error {
	if patch.Empty() {
		return nil
	}
	if err := r.data.Update(ctx, r.table, backend.Filter{backend.Eq("id", userID)}, backend.Row(patch.Columns())); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// FromRow decodes a users row. Missing or NULL columns keep their zero value.
func FromRow(row backend.Row) models.Profile {
	return models.Profile{
		ID:        str(row["id"]),
		FirstName: str(row["first_name"]),
		LastName:  str(row["last_name"]),
		AvatarURL: str(row["avatar_url"]),
		IsAdmin:   boolean(row["is_admin"]),
	}
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func boolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "t" || t == "true"
	case int64:
		return t != 0
	default:
		return false
	}
}
