package repositories

import (
	"database/sql"
	"fmt"

	"tixmojo/internal/models"
)

// TicketRepository handles ticket type catalog data operations
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketTypeColumns = `id, event_id, name, description, price, currency, quantity, sold, sale_start, sale_end, created_at`

func scanTicketType(row interface{ Scan(...any) error }) (*models.TicketType, error) {
	tt := &models.TicketType{}
	err := row.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Description,
		&tt.Price,
		&tt.Currency,
		&tt.Quantity,
		&tt.Sold,
		&tt.SaleStart,
		&tt.SaleEnd,
		&tt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tt, nil
}

// GetByID retrieves a ticket type by ID
func (r *TicketRepository) GetByID(id int) (*models.TicketType, error) {
	query := fmt.Sprintf(`SELECT %s FROM ticket_types WHERE id = $1`, ticketTypeColumns)

	tt, err := scanTicketType(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	return tt, nil
}

// GetByEvent retrieves all ticket types for an event in display order
func (r *TicketRepository) GetByEvent(eventID int) ([]*models.TicketType, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM ticket_types
		WHERE event_id = $1
		ORDER BY price ASC, id ASC`, ticketTypeColumns)

	rows, err := r.db.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*models.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, tt)
	}

	return ticketTypes, rows.Err()
}

// Create inserts a new ticket type (used by seeding tools)
func (r *TicketRepository) Create(tt *models.TicketType) (*models.TicketType, error) {
	if err := tt.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO ticket_types (event_id, name, description, price, currency, quantity, sold, sale_start, sale_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, NOW())
		RETURNING %s`, ticketTypeColumns)

	created, err := scanTicketType(r.db.QueryRow(
		query,
		tt.EventID,
		tt.Name,
		tt.Description,
		tt.Price,
		tt.Currency,
		tt.Quantity,
		tt.SaleStart,
		tt.SaleEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	return created, nil
}

// RecordSale increments the sold counter for purchased ticket types.
// Called after a successful payment so availability reflects completed
// checkouts.
func (r *TicketRepository) RecordSale(ticketTypeID, quantity int) error {
	result, err := r.db.Exec(`
		UPDATE ticket_types
		SET sold = sold + $1
		WHERE id = $2 AND sold + $1 <= quantity`,
		quantity, ticketTypeID)
	if err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("insufficient stock for ticket type %d", ticketTypeID)
	}

	return nil
}
