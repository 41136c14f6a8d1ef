package domain

// Batch collects serialized protocol messages that are shipped in one request.
type Batch struct {
	// Messages holds one serialized message per element, in send order.
	Messages []string

	// TotalBytes is the sum of all message lengths
	TotalBytes int
}

// NewBatch creates a new empty batch.
func NewBatch() *Batch {
	return &Batch{Messages: make([]string, 0)}
}

// Add appends a message to the batch.
func (b *Batch) Add(msg string) {
	b.Messages = append(b.Messages, msg)
	b.TotalBytes += len(msg)
}

// Size returns the number of messages in the batch.
func (b *Batch) Size() int {
	return len(b.Messages)
}

// Empty returns true if the batch has no messages.
func (b *Batch) Empty() bool {
	return len(b.Messages) == 0
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Messages = b.Messages[:0]
	b.TotalBytes = 0
}
