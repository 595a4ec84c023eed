package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/homenest/booking-backend/internal/apperrors"
	"github.com/homenest/booking-backend/internal/models"
)

const agentColumns = `id, name, phone, service_categories, rating,
	   availability, total_bookings, completed_bookings, created_at, updated_at`

// AgentRepository handles database operations for the agents table.
// Counter updates live in BookingRepository's transitions so they commit
// atomically with the booking status change.
type AgentRepository struct {
	db DB
}

// NewAgentRepository creates a new AgentRepository
func NewAgentRepository(db DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// GetByID retrieves an agent by ID
func (r *AgentRepository) GetByID(agentID string) (*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.scanAgent(r.db.QueryRow(query, agentID))
}

// ListAvailable retrieves available agents whose categories overlap the
// given set. An empty set matches every available agent. Highest rated
// first so admins see the best match on top.
func (r *AgentRepository) ListAvailable(categories []string) ([]models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE availability = true`
	args := []interface{}{}
	if len(categories) > 0 {
		query += ` AND service_categories && $1`
		args = append(args, pq.Array(categories))
	}
	query += ` ORDER BY rating DESC, name`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list available agents: %w", err)
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		var agent models.Agent
		err := rows.Scan(
			&agent.ID, &agent.Name, &agent.Phone, &agent.ServiceCategories,
			&agent.Rating, &agent.Availability, &agent.TotalBookings,
			&agent.CompletedBookings, &agent.CreatedAt, &agent.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}

	return agents, rows.Err()
}

// SetAvailability flips the agent's availability flag
func (r *AgentRepository) SetAvailability(agentID string, available bool) error {
	result, err := r.db.Exec(`
		UPDATE agents
		SET availability = $2, updated_at = NOW()
		WHERE id = $1`,
		agentID, available)
	if err != nil {
		return fmt.Errorf("failed to update agent availability: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// scanAgent scans a single agent
func (r *AgentRepository) scanAgent(row *sql.Row) (*models.Agent, error) {
	agent := &models.Agent{}
	err := row.Scan(
		&agent.ID, &agent.Name, &agent.Phone, &agent.ServiceCategories,
		&agent.Rating, &agent.Availability, &agent.TotalBookings,
		&agent.CompletedBookings, &agent.CreatedAt, &agent.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}
	return agent, nil
}
