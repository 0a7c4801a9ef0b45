// Package queue implements the C10 work queue adapter (spec.md §4.10,
// §5): enqueue, dequeue with visibility timeout, and per-message retry
// count. The Batch Coordinator (C6) enqueues one work unit per batch
// partition; workers dequeue, process, and either delete (success) or
// let the message become visible again (retry) or explicitly requeue
// with an incremented attempt count.
//
// SQS-backed, grounded in _examples/original_source's AWS Lambda/SQS
// crawler-and-matching architecture; named ecosystem sibling of the S3
// SDK already wired for internal/blob.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Message is one work unit on the queue: a batch partition of
// opportunity ids to score for a company (spec.md §4.6 step 4).
type Message struct {
	JobID          string   `json:"job_id"`
	OpportunityIDs []string `json:"opportunity_ids"`
	Attempt        int      `json:"attempt"`

	// ReceiptHandle/id are populated by Dequeue and consumed by
	// Delete/ChangeVisibility; callers never set them directly.
	receiptHandle string
	id            string
}

// ReceiptHandle exposes the dequeue receipt needed to ack/nack.
func (m *Message) ReceiptHandle() string { return m.receiptHandle }

// Queue is the C10 work queue adapter.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue receives up to n messages, each becoming invisible to
	// other consumers for visibilityTimeout.
	Dequeue(ctx context.Context, n int, visibilityTimeout time.Duration) ([]Message, error)
	// Delete acknowledges successful processing, removing msg from the
	// queue permanently.
	Delete(ctx context.Context, msg Message) error
	// ChangeVisibility extends or releases msg's visibility timeout;
	// a zero duration makes it immediately visible again (used to
	// retry without waiting out the original timeout).
	ChangeVisibility(ctx context.Context, msg Message, timeout time.Duration) error
}

// SQSQueue implements Queue over an Amazon SQS queue.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSQueue wraps an already-configured sqs.Client for queueURL.
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL}
}

// Enqueue implements Queue.
func (q *SQSQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: encode message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Dequeue implements Queue.
func (q *SQSQueue) Dequeue(ctx context.Context, n int, visibilityTimeout time.Duration) ([]Message, error) {
	if n <= 0 {
		n = 1
	}
	if n > 10 {
		n = 10 // SQS ReceiveMessage hard cap
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages:  int32(n),
		VisibilityTimeout:    int32(visibilityTimeout.Seconds()),
		MessageAttributeNames: []string{string(types.QueueAttributeNameAll)},
	})
	if err != nil {
		return nil, fmt.Errorf("queue: dequeue: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, raw := range out.Messages {
		var m Message
		if err := json.Unmarshal([]byte(aws.ToString(raw.Body)), &m); err != nil {
			continue // malformed message; skip rather than fail the whole batch
		}
		m.receiptHandle = aws.ToString(raw.ReceiptHandle)
		m.id = aws.ToString(raw.MessageId)
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Delete implements Queue.
func (q *SQSQueue) Delete(ctx context.Context, msg Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("queue: delete message: %w", err)
	}
	return nil
}

// ChangeVisibility implements Queue.
func (q *SQSQueue) ChangeVisibility(ctx context.Context, msg Message, timeout time.Duration) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.queueURL),
		ReceiptHandle:     aws.String(msg.receiptHandle),
		VisibilityTimeout: int32(timeout.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("queue: change visibility: %w", err)
	}
	return nil
}
