package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ammledger/internal/amm"
	"ammledger/internal/model"
	"ammledger/internal/storage"
)

// RecorderConfig holds settings for a Recorder.
type RecorderConfig struct {
	// StartSeq is the sequence of the last record already in the journal.
	StartSeq     uint64
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Recorder is an amm.Observer that journals committed operations. Records
// are numbered in observation order, which per pool is commit order. Observe
// only queues them; a background writer stores full batches, so pool locks
// are never held across storage I/O. Close stops the writer.
type Recorder struct {
	cfg     RecorderConfig
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	pending []model.OperationRecord
	err     error

	// writeMu serializes batch writes so batches reach storage in seq order.
	writeMu sync.Mutex
	kick    chan struct{}
	stop    context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func NewRecorder(cfg RecorderConfig, sink storage.Storage, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	r := &Recorder{
		cfg:     cfg,
		storage: sink,
		logger:  logger,
		now:     time.Now,
		seq:     cfg.StartSeq,
		kick:    make(chan struct{}, 1),
		stop:    stop,
		done:    make(chan struct{}),
	}
	go r.writeLoop(ctx)
	return r
}

// Observe implements amm.Observer. Rejected operations are not journaled.
func (r *Recorder) Observe(e amm.Event) {
	if !e.Committed() {
		return
	}

	r.mu.Lock()
	r.seq++
	recordedAt := r.now().UTC().Format(time.RFC3339Nano)
	r.pending = append(r.pending, RecordFromEvent(r.seq, e, recordedAt))
	full := len(r.pending) >= r.cfg.BatchSize
	r.mu.Unlock()

	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

// Seq returns the sequence of the last recorded operation.
func (r *Recorder) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Flush writes pending records and returns the first write error seen since
// the recorder was created. After a failed write the recorder keeps its
// pending records and retries them on the next flush.
func (r *Recorder) Flush(ctx context.Context) error {
	if err := r.write(ctx); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close stops the background writer and flushes what is still pending.
func (r *Recorder) Close(ctx context.Context) error {
	r.once.Do(func() {
		r.stop()
		<-r.done
	})
	return r.Flush(ctx)
}

func (r *Recorder) writeLoop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
			r.write(ctx)
		}
	}
}

// write stores the pending records as one batch. A failure caused by ctx
// ending requeues the batch without becoming the recorder's error.
func (r *Recorder) write(ctx context.Context) error {
	if r.storage == nil {
		return nil
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	err := retryWrite(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func() error {
		err := r.storage.PutOperationBatch(batch)
		if err != nil {
			r.logger.Warn("journal write failed", zap.Error(err), zap.Int("records", len(batch)))
		}
		return err
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.pending = append(batch, r.pending...)
		if r.err == nil && ctx.Err() == nil {
			r.err = fmt.Errorf("write journal: %w", err)
		}
		return err
	}
	r.logger.Debug("journal batch written",
		zap.Int("records", len(batch)),
		zap.Uint64("from_seq", batch[0].Seq),
		zap.Uint64("to_seq", batch[len(batch)-1].Seq),
	)
	return nil
}
