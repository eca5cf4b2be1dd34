package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/ports/messaging"
	"attendance.tracker/internal/ports/repository"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
)

// maxDegradedAttempts is how often a month that loaded with a missing source
// is retried before its partial snapshot is accepted.
const maxDegradedAttempts = 5

// MonthLoader fetches and merges one month for one employee. Concurrent
// calls must not affect each other.
type MonthLoader interface {
	FetchMonth(ctx context.Context, month, year int) (model.MonthView, error)
}

// LoaderFactory builds the MonthLoader of an employee.
type LoaderFactory func(employeeID string) (MonthLoader, error)

// Processor handles jobs from the punch events queue: it reloads the month a
// punch landed in and stores the merged result as the employee's snapshot.
type Processor struct {
	Repo      repository.SnapshotRepository
	newLoader LoaderFactory

	mu      sync.Mutex
	loaders map[string]MonthLoader
}

// NewProcessor creates a new processor for the punch events queue.
func NewProcessor(r repository.SnapshotRepository, newLoader LoaderFactory) *Processor {
	return &Processor{
		Repo:      r,
		newLoader: newLoader,
		loaders:   make(map[string]MonthLoader),
	}
}

// Process is the core logic for handling a message from the punch events queue.
// Load failures are retried with exponential backoff.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, errors.New("empty message body")
	}
	var payload messaging.PunchMessage
	if err := json.Unmarshal([]byte(*msg.Body), &payload); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal punch event")
		return false, 0, err // Do not retry on malformed message
	}
	if payload.Type != messaging.EventTypePunchRecorded {
		log.Ctx(ctx).Warn().Str("type", payload.Type).Msg("Ignoring unknown event type")
		return false, 0, nil
	}

	event := payload.Event
	day, err := time.Parse("2006-01-02", event.Date)
	if err != nil {
		return false, 0, fmt.Errorf("invalid punch date %q: %w", event.Date, err)
	}
	if event.EmployeeID == "" {
		return false, 0, errors.New("punch event without employee id")
	}

	logger := log.Ctx(ctx).With().
		Str("event_id", event.EventID).
		Str("employee_id", event.EmployeeID).
		Str("action", string(event.Action)).
		Logger()
	logger.Info().Str("date", event.Date).Msg("Processing punch event")

	loader, err := p.loader(event.EmployeeID)
	if err != nil {
		return false, 0, err
	}

	attempt := receiveCount(msg)
	view, err := loader.FetchMonth(ctx, int(day.Month()), day.Year())
	if err != nil {
		delay := calculateBackoff(attempt)
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Month reload failed")
		return true, delay, fmt.Errorf("failed to reload month: %w", err)
	}

	if err := p.Repo.SaveMonth(ctx, event.EmployeeID, view); err != nil {
		return true, calculateBackoff(attempt), fmt.Errorf("failed to save month snapshot: %w", err)
	}

	if len(view.Degraded) > 0 && attempt < maxDegradedAttempts {
		logger.Warn().Strs("degraded", view.Degraded).Int("attempt", attempt).Msg("Saved partial month, will retry")
		return true, calculateBackoff(attempt), fmt.Errorf("month loaded without %v", view.Degraded)
	}
	return false, 0, nil
}

func (p *Processor) loader(employeeID string) (MonthLoader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.loaders[employeeID]; ok {
		return l, nil
	}
	l, err := p.newLoader(employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create month loader: %w", err)
	}
	p.loaders[employeeID] = l
	return l, nil
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry.
func calculateBackoff(retryCount int) int32 {
	backoff := math.Pow(2, float64(retryCount)) * 10
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return int32(backoff)
}
