package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"tixmojo/internal/models"
)

// EventRepository handles event catalog data operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventSearchFilters represents filters for event search
type EventSearchFilters struct {
	Query    string
	Category string
	City     string
	Limit    int
	Offset   int
}

const eventColumns = `id, title, description, venue, city, category, image_url, start_date, end_date, status, featured, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Venue,
		&event.City,
		&event.Category,
		&event.ImageURL,
		&event.StartDate,
		&event.EndDate,
		&event.Status,
		&event.Featured,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(id int) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)

	event, err := scanEvent(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// GetFeatured retrieves published featured events for the home carousels
func (r *EventRepository) GetFeatured(limit int) ([]*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE status = $1 AND featured = true AND start_date > NOW()
		ORDER BY start_date ASC
		LIMIT $2`, eventColumns)

	return r.queryEvents(query, models.EventPublished, limit)
}

// GetUpcoming retrieves published events ordered by start date
func (r *EventRepository) GetUpcoming(limit int) ([]*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE status = $1 AND start_date > NOW()
		ORDER BY start_date ASC
		LIMIT $2`, eventColumns)

	return r.queryEvents(query, models.EventPublished, limit)
}

// Search retrieves published events matching the filters
func (r *EventRepository) Search(filters EventSearchFilters) ([]*models.Event, error) {
	conditions := []string{"status = $1"}
	args := []any{models.EventPublished}

	if filters.Query != "" {
		args = append(args, "%"+filters.Query+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if filters.Category != "" {
		args = append(args, filters.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}

	if filters.City != "" {
		args = append(args, filters.City)
		conditions = append(conditions, fmt.Sprintf("city = $%d", len(args)))
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filters.Offset)

	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE %s
		ORDER BY start_date ASC
		LIMIT $%d OFFSET $%d`,
		eventColumns, strings.Join(conditions, " AND "), len(args)-1, len(args))

	return r.queryEvents(query, args...)
}

// Create inserts a new event (used by seeding tools)
func (r *EventRepository) Create(event *models.Event) (*models.Event, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO events (title, description, venue, city, category, image_url, start_date, end_date, status, featured, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING %s`, eventColumns)

	created, err := scanEvent(r.db.QueryRow(
		query,
		event.Title,
		event.Description,
		event.Venue,
		event.City,
		event.Category,
		event.ImageURL,
		event.StartDate,
		event.EndDate,
		event.Status,
		event.Featured,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return created, nil
}

func (r *EventRepository) queryEvents(query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
