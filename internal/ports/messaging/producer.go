package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"attendance.tracker/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Producer publishes punch events so that other processes can reload the
// attendance data they show.
type Producer struct {
	sender        MessageSender
	punchQueueURL string
}

func NewProducer(sender MessageSender, punchQueueURL string) *Producer {
	return &Producer{
		sender:        sender,
		punchQueueURL: punchQueueURL,
	}
}

// PunchRecorded publishes event to the punch events queue.
func (p *Producer) PunchRecorded(ctx context.Context, event model.PunchEvent) error {
	return p.publish(ctx, p.punchQueueURL, NewPunchMessage(event))
}

func (p *Producer) publish(ctx context.Context, destination string, msg PunchMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() && msg.EmployeeID != "" {
		span.SetAttributes(attribute.String("app.employeeId", msg.EmployeeID))
	}

	if err := p.sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
