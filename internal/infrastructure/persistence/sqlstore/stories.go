package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/nancymuyeh/SafeSpace/internal/domain"
	"github.com/nancymuyeh/SafeSpace/internal/repository"
)

var (
	_ repository.StoryRepository    = (*Store)(nil)
	_ repository.ReactionRepository = (*Store)(nil)
	_ repository.ReportRepository   = (*Store)(nil)
)

// ListStories returns every story, newest first.
func (s *Store) ListStories(ctx context.Context) (stories []domain.Story, err error) {
	defer s.track("select", "stories")(&err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, mood, user_id, created_at
		   FROM stories
		  ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	stories = []domain.Story{}
	for rows.Next() {
		var (
			story     domain.Story
			mood      string
			userID    sql.NullString
			createdAt int64
		)
		if err = rows.Scan(&story.ID, &story.Content, &mood, &userID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		story.Mood = domain.Mood(mood)
		if userID.Valid {
			id := userID.String
			story.UserID = &id
		}
		story.CreatedAt = fromMillis(createdAt)
		stories = append(stories, story)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stories: %w", err)
	}
	return stories, nil
}

// CreateStory inserts story, assigning an ID and creation time when unset.
// A referenced user is registered on first use.
func (s *Store) CreateStory(ctx context.Context, story *domain.Story) (err error) {
	defer s.track("insert", "stories")(&err)

	if story == nil {
		return fmt.Errorf("story is required")
	}
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	// Stored precision is milliseconds; keep the returned entity consistent
	// with what a later read produces.
	story.CreatedAt = fromMillis(toMillis(story.CreatedAt))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create story: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var userID any
	if story.UserID != nil && strings.TrimSpace(*story.UserID) != "" {
		userID = *story.UserID
		if _, err = tx.ExecContext(ctx,
			s.rebind(`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`),
			userID, toMillis(story.CreatedAt),
		); err != nil {
			return fmt.Errorf("register user: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO stories (id, content, mood, user_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		story.ID, story.Content, string(story.Mood), userID, toMillis(story.CreatedAt),
	); err != nil {
		return fmt.Errorf("create story: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create story: %w", err)
	}
	return nil
}

// StoryExists reports whether a story with id is stored.
func (s *Store) StoryExists(ctx context.Context, id string) (exists bool, err error) {
	defer s.track("exists", "stories")(&err)

	var found int
	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM stories WHERE id = ?`), id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check story: %w", err)
	}
	return true, nil
}

// CreateReaction inserts reaction. It returns domain.ErrStoryNotFound when
// the referenced story does not exist.
func (s *Store) CreateReaction(ctx context.Context, reaction *domain.Reaction) (err error) {
	defer s.track("insert", "reactions")(&err)

	if reaction == nil {
		return fmt.Errorf("reaction is required")
	}
	if reaction.ID == "" {
		reaction.ID = uuid.NewString()
	}
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now().UTC()
	}
	reaction.CreatedAt = fromMillis(toMillis(reaction.CreatedAt))

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO reactions (id, story_id, type, created_at) VALUES (?, ?, ?, ?)`),
		reaction.ID, reaction.StoryID, reaction.Type, toMillis(reaction.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrStoryNotFound
		}
		return fmt.Errorf("create reaction: %w", err)
	}
	return nil
}

// CreateReport inserts report. It returns domain.ErrStoryNotFound when the
// referenced story does not exist.
func (s *Store) CreateReport(ctx context.Context, report *domain.Report) (err error) {
	defer s.track("insert", "reports")(&err)

	if report == nil {
		return fmt.Errorf("report is required")
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.CreatedAt = fromMillis(toMillis(report.CreatedAt))

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO reports (id, story_id, reason, created_at) VALUES (?, ?, ?, ?)`),
		report.ID, report.StoryID, report.Reason, toMillis(report.CreatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrStoryNotFound
		}
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

const pgForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
