package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	"github.com/nancymuyeh/SafeSpace/internal/repository"
)

var _ repository.ResourceRepository = (*Store)(nil)

// ListResources returns every resource ordered by title.
func (s *Store) ListResources(ctx context.Context) (resources []domain.Resource, err error) {
	defer s.track("select", "resources")(&err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, url, type, created_at
		   FROM resources
		  ORDER BY title ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	resources = []domain.Resource{}
	for rows.Next() {
		var (
			r         domain.Resource
			createdAt int64
		)
		if err = rows.Scan(&r.ID, &r.Title, &r.Description, &r.URL, &r.Type, &createdAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		r.CreatedAt = fromMillis(createdAt)
		resources = append(resources, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return resources, nil
}

// CreateResource inserts resource, assigning an ID and creation time when unset.
func (s *Store) CreateResource(ctx context.Context, resource *domain.Resource) (err error) {
	defer s.track("insert", "resources")(&err)

	if resource == nil {
		return fmt.Errorf("resource is required")
	}
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	resource.CreatedAt = fromMillis(toMillis(resource.CreatedAt))

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO resources (id, title, description, url, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		resource.ID, resource.Title, resource.Description, resource.URL, resource.Type, toMillis(resource.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}
