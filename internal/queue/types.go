package queue

import "errors"

// ErrNoMessage is returned by Receive when no visible message is available.
var ErrNoMessage = errors.New("queue: no message available")

// Message is the payload carried by a queued task: the id of the Job to
// execute, which named queue it was routed to, and the priority it was
// enqueued with (used to rank dispatch order ahead of plain FIFO).
type Message struct {
	JobID     string `json:"job_id"`
	QueueName string `json:"queue_name"`
	Priority  int    `json:"priority"`
}
