package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SongRunner drives a song through the generation pipeline.
type SongRunner interface {
	Run(ctx context.Context, songID uuid.UUID) error
}

// SongRunnerFunc adapts a function to SongRunner.
type SongRunnerFunc func(ctx context.Context, songID uuid.UUID) error

// Run calls f.
func (f SongRunnerFunc) Run(ctx context.Context, songID uuid.UUID) error {
	return f(ctx, songID)
}

// SongReconciler makes one status check on a song's pending audio or video
// job.
type SongReconciler interface {
	ReconcileSong(ctx context.Context, songID uuid.UUID) (bool, error)
}

type songPayload struct {
	SongID uuid.UUID `json:"song_id"`
}

// SongGenerationTask runs the full pipeline for one song.
type SongGenerationTask struct {
	statusTracker
	id      uuid.UUID
	songID  uuid.UUID
	runner  SongRunner
	payload []byte
}

// NewSongGenerationTask creates a task for songID.
func NewSongGenerationTask(songID uuid.UUID, runner SongRunner) (*SongGenerationTask, error) {
	if runner == nil {
		return nil, errors.New("song runner cannot be nil")
	}
	if songID == uuid.Nil {
		return nil, errors.New("song ID cannot be empty")
	}
	payload, err := json.Marshal(songPayload{SongID: songID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return &SongGenerationTask{
		id:      uuid.New(),
		songID:  songID,
		runner:  runner,
		payload: payload,
	}, nil
}

func (t *SongGenerationTask) ID() uuid.UUID     { return t.id }
func (t *SongGenerationTask) Type() string      { return TaskTypeSongGeneration }
func (t *SongGenerationTask) Payload() []byte   { return t.payload }
func (t *SongGenerationTask) SongID() uuid.UUID { return t.songID }

// Execute runs the pipeline.
func (t *SongGenerationTask) Execute(ctx context.Context) error {
	t.set(TaskStatusProcessing)
	return t.finish(t.runner.Run(ctx, t.songID))
}

// ReconcileTask checks a stale audio or video job once.
type ReconcileTask struct {
	statusTracker
	id         uuid.UUID
	songID     uuid.UUID
	reconciler SongReconciler
	payload    []byte
}

// NewReconcileTask creates a reconciliation task for songID.
func NewReconcileTask(songID uuid.UUID, reconciler SongReconciler) (*ReconcileTask, error) {
	if reconciler == nil {
		return nil, errors.New("reconciler cannot be nil")
	}
	if songID == uuid.Nil {
		return nil, errors.New("song ID cannot be empty")
	}
	payload, err := json.Marshal(songPayload{SongID: songID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return &ReconcileTask{
		id:         uuid.New(),
		songID:     songID,
		reconciler: reconciler,
		payload:    payload,
	}, nil
}

func (t *ReconcileTask) ID() uuid.UUID     { return t.id }
func (t *ReconcileTask) Type() string      { return TaskTypeReconcile }
func (t *ReconcileTask) Payload() []byte   { return t.payload }
func (t *ReconcileTask) SongID() uuid.UUID { return t.songID }

// Execute reconciles the song. A job that is still processing is not an
// error.
func (t *ReconcileTask) Execute(ctx context.Context) error {
	t.set(TaskStatusProcessing)
	_, err := t.reconciler.ReconcileSong(ctx, t.songID)
	return t.finish(err)
}

// Dispatcher turns song IDs into queued tasks. A song has at most one
// generation task queued or running at a time.
type Dispatcher struct {
	queue      TaskQueueWriter
	runner     SongRunner
	reconciler SongReconciler

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

// NewDispatcher creates a Dispatcher. The reconciler may be set later with
// SetReconciler since it is usually built after the dispatcher.
func NewDispatcher(queue TaskQueueWriter, runner SongRunner) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		runner: runner,
		active: make(map[uuid.UUID]struct{}),
	}
}

// SetReconciler sets the target of ScheduleReconcile.
func (d *Dispatcher) SetReconciler(r SongReconciler) {
	d.reconciler = r
}

// EnqueueGeneration queues a pipeline run for songID. It does nothing when
// a run for the song is already queued or running.
func (d *Dispatcher) EnqueueGeneration(_ context.Context, songID uuid.UUID) error {
	if !d.claim(songID) {
		return nil
	}
	t, err := NewSongGenerationTask(songID, SongRunnerFunc(d.run))
	if err != nil {
		d.release(songID)
		return err
	}
	if err := d.queue.Enqueue(t); err != nil {
		d.release(songID)
		return err
	}
	return nil
}

// Active reports whether a generation run for songID is queued or running.
func (d *Dispatcher) Active(songID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[songID]
	return ok
}

func (d *Dispatcher) run(ctx context.Context, songID uuid.UUID) error {
	defer d.release(songID)
	return d.runner.Run(ctx, songID)
}

func (d *Dispatcher) claim(songID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.active[songID]; ok {
		return false
	}
	d.active[songID] = struct{}{}
	return true
}

func (d *Dispatcher) release(songID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.active, songID)
}

// ScheduleReconcile queues a reconciliation check for songID.
func (d *Dispatcher) ScheduleReconcile(_ context.Context, songID uuid.UUID) error {
	t, err := NewReconcileTask(songID, d.reconciler)
	if err != nil {
		return err
	}
	return d.queue.Enqueue(t)
}
