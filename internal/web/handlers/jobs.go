package handlers

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/sunglasses/internal/constants"
	"github.com/kozaktomas/sunglasses/internal/pipeline"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of a batch job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Event types sent to batch listeners.
const (
	eventProgress  = "progress"
	eventSkipped   = "skipped"
	eventImage     = "image"
	eventCompleted = "completed"
	eventFailed    = "failed"
)

// ErrBatchRunning is returned when a batch is started while another one is still running.
var ErrBatchRunning = errors.New("a batch is already running")

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
type EventBroadcaster struct {
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners. Full listeners miss the event.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// BatchStatus is the JSON view of a batch job.
type BatchStatus struct {
	ID          string                    `json:"id"`
	Status      JobStatus                 `json:"status"`
	Total       int                       `json:"total"`
	Processed   int                       `json:"processed"`
	Progress    int                       `json:"progress"`
	Current     string                    `json:"current,omitempty"`
	Images      []pipeline.ProcessedImage `json:"images"`
	Skipped     []pipeline.Skip           `json:"skipped"`
	Error       string                    `json:"error,omitempty"`
	StartedAt   time.Time                 `json:"started_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
}

// BatchJob is one sunglasses batch running in the background.
type BatchJob struct {
	EventBroadcaster

	id          string
	status      JobStatus
	result      pipeline.Result // grows as images and skips arrive
	processed   int
	current     string
	err         string
	startedAt   time.Time
	completedAt *time.Time
}

// ID returns the job identifier.
func (j *BatchJob) ID() string {
	return j.id
}

// GetStatus returns the current job status (implements SSEJob).
func (j *BatchJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Snapshot returns a copy of the job state.
func (j *BatchJob) Snapshot() BatchStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := BatchStatus{
		ID:          j.id,
		Status:      j.status,
		Total:       j.result.Total,
		Processed:   j.processed,
		Current:     j.current,
		Images:      append([]pipeline.ProcessedImage{}, j.result.Images...),
		Skipped:     append([]pipeline.Skip{}, j.result.Skipped...),
		Error:       j.err,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
	if j.result.Total > 0 {
		s.Progress = j.processed * 100 / j.result.Total
	}
	return s
}

// Images returns the processed images produced so far.
func (j *BatchJob) Images() []pipeline.ProcessedImage {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]pipeline.ProcessedImage{}, j.result.Images...)
}

// Image returns one processed image by handle.
func (j *BatchJob) Image(handle string) (pipeline.ProcessedImage, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result.Find(handle)
}

func (j *BatchJob) setRunning() {
	j.mu.Lock()
	j.status = JobStatusRunning
	j.mu.Unlock()
}

func (j *BatchJob) progress(p pipeline.Progress) {
	j.mu.Lock()
	j.processed = p.Current - 1
	j.current = p.Filename
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: eventProgress, Data: p})
}

func (j *BatchJob) skip(s pipeline.Skip) {
	j.mu.Lock()
	j.result.Skipped = append(j.result.Skipped, s)
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: eventSkipped, Data: s})
}

func (j *BatchJob) addImage(img pipeline.ProcessedImage) {
	j.mu.Lock()
	j.result.Images = append(j.result.Images, img)
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: eventImage, Data: img})
}

// complete marks the job finished. Status is updated before the event so stream
// readers observe a terminal state when the event arrives.
func (j *BatchJob) complete() {
	now := time.Now()
	j.mu.Lock()
	j.status = JobStatusCompleted
	j.processed = j.result.Total
	j.current = ""
	j.completedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: eventCompleted, Data: j.Snapshot()})
}

func (j *BatchJob) fail(message string) {
	now := time.Now()
	j.mu.Lock()
	j.status = JobStatusFailed
	j.err = message
	j.current = ""
	j.completedAt = &now
	j.mu.Unlock()
	j.SendEvent(JobEvent{Type: eventFailed, Message: message})
}

// BatchManager holds the single active batch job.
type BatchManager struct {
	active *BatchJob
	mu     sync.Mutex
}

// NewBatchManager creates an empty manager.
func NewBatchManager() *BatchManager {
	return &BatchManager{}
}

// Create registers a new pending job for total inputs. A finished job is
// discarded together with its results; a running one yields ErrBatchRunning.
func (m *BatchManager) Create(total int) (*BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && !isJobTerminal(m.active.GetStatus()) {
		return nil, ErrBatchRunning
	}
	m.active = &BatchJob{
		id:        uuid.New().String(),
		status:    JobStatusPending,
		result:    pipeline.Result{Total: total},
		startedAt: time.Now(),
	}
	return m.active, nil
}

// Get returns the active job if its ID matches.
func (m *BatchManager) Get(id string) *BatchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.id != id {
		return nil
	}
	return m.active
}

// Active returns the current job or nil.
func (m *BatchManager) Active() *BatchJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
