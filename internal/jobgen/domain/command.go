package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the generation exchange
const (
	CommandRoutingKey    = "jobgen.command"
	BatchEventRoutingKey = "jobgen.batch_committed"
)

// Command asks a worker to run one generation operation. WorldID is
// required for populate and refresh; an empty WorldID on cleanup covers
// every world.
type Command struct {
	CommandID   string    `json:"command_id"`
	Operation   RunMode   `json:"operation"`
	WorldID     string    `json:"world_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewCommand creates a command with a fresh id
func NewCommand(op RunMode, worldID string, now time.Time) Command {
	return Command{
		CommandID:   uuid.NewString(),
		Operation:   op,
		WorldID:     worldID,
		RequestedAt: now.UTC(),
	}
}

// Validate checks the command can be executed
func (c Command) Validate() error {
	if _, err := uuid.Parse(c.CommandID); err != nil {
		return fmt.Errorf("%w: command_id is not a uuid", ErrInvalidCommand)
	}

	switch c.Operation {
	case RunModePopulate, RunModeRefresh:
		if c.WorldID == "" {
			return fmt.Errorf("%w: world_id is required for %s", ErrInvalidCommand, c.Operation)
		}
	case RunModeCleanup:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, c.Operation)
	}

	return nil
}
