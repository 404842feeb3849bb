package batch

import (
	"time"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// EventType names a processor event
type EventType string

const (
	EventBatchStarted        EventType = "batch-started"
	EventProgressUpdate      EventType = "progress-update"
	EventItemProcessing      EventType = "product-processing"
	EventItemCompleted       EventType = "product-completed"
	EventItemFailed          EventType = "product-failed"
	EventBatchResults        EventType = "batch-results"
	EventWaitingNextBatch    EventType = "waiting-next-batch"
	EventBatchPaused         EventType = "batch-paused"
	EventBatchResumed        EventType = "batch-resumed"
	EventBatchCancelled      EventType = "batch-cancelled"
	EventAllBatchesCompleted EventType = "all-batches-completed"
	EventBatchCompleted      EventType = "batch-completed"
)

// Event is delivered to every subscriber. Data holds one of the payload types below.
type Event struct {
	Type EventType   `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

// EventHandler observes processor events. Handlers run on the processor
// goroutine and must not block.
type EventHandler func(Event)

// BatchStarted is the payload of batch-started
type BatchStarted struct {
	CurrentBatch int `json:"currentBatch"`
	TotalBatches int `json:"totalBatches"`
	ItemCount    int `json:"productsInBatch"`
}

// ItemProcessing is the payload of product-processing
type ItemProcessing struct {
	ItemID int64  `json:"productId"`
	Name   string `json:"productName,omitempty"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

// ItemCompleted is the payload of product-completed
type ItemCompleted struct {
	ItemID  int64                    `json:"productId"`
	Content *models.GeneratedContent `json:"content"`
}

// ItemFailed is the payload of product-failed
type ItemFailed struct {
	ItemID int64  `json:"productId"`
	Error  string `json:"error"`
}

// BatchResults is the payload of batch-results
type BatchResults struct {
	Batch     int `json:"batch"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// WaitingNextBatch is the payload of waiting-next-batch
type WaitingNextBatch struct {
	Delay     time.Duration `json:"delay"`
	NextBatch int           `json:"nextBatch"`
}

// AllBatchesCompleted is the payload of all-batches-completed
type AllBatchesCompleted struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// BatchCompleted is the payload of batch-completed, sent when a start has nothing left to do
type BatchCompleted struct {
	AllAlreadyProcessed bool `json:"allAlreadyProcessed"`
	Total               int  `json:"total"`
}
