package sqsadapter

import (
	"context"
	"testing"

	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/ports/messaging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSendMessageSetsAttributes(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	client := &fakeSQS{}
	if err := NewSQSSender(client).SendMessage(ctx, "https://sqs.local/q", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := client.input
	if aws.ToString(in.QueueUrl) != "https://sqs.local/q" || aws.ToString(in.MessageBody) != `{"a":1}` {
		t.Fatalf("unexpected input %+v", in)
	}
	if aws.ToString(in.MessageAttributes["EventType"].StringValue) != messaging.EventTypePunchRecorded {
		t.Fatalf("expected the event type attribute, got %+v", in.MessageAttributes)
	}
	if aws.ToString(in.MessageAttributes["traceparent"].StringValue) == "" {
		t.Fatal("expected the trace context to be injected")
	}
}

func TestSQSProducer(t *testing.T) {
	client := &fakeSQS{}
	p := NewSQSProducer(client, "https://sqs.local/punch-events")

	if err := p.PunchRecorded(context.Background(), model.PunchEvent{EmployeeID: "emp-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(client.input.QueueUrl) != "https://sqs.local/punch-events" {
		t.Fatalf("unexpected queue %s", aws.ToString(client.input.QueueUrl))
	}
}
