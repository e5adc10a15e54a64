package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"postly/internal/storage"
)

// Janitor deletes media objects that no post references any more.
type Janitor interface {
	Start(ctx context.Context)
	Shutdown()
	Enqueue(key string)
}

type Config struct {
	MaxConcurrent int
	QueueSize     int
	DeleteTimeout time.Duration
	Logger        *logrus.Logger
}

type janitor struct {
	cfg     Config
	storage storage.Service

	queue  chan string
	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

func NewJanitor(cfg Config, store storage.Service) Janitor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.DeleteTimeout == 0 {
		cfg.DeleteTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &janitor{
		cfg:     cfg,
		storage: store,
		queue:   make(chan string, cfg.QueueSize),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (j *janitor) Start(ctx context.Context) {
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.loop()
	j.cfg.Logger.Infof("media janitor started, workers: %d", j.cfg.MaxConcurrent)
}

// Shutdown stops accepting keys and waits for queued deletions to finish.
func (j *janitor) Shutdown() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()
	j.wg.Wait()
	if j.cancel != nil {
		j.cancel()
	}
	j.cfg.Logger.Info("media janitor stopped")
}

func (j *janitor) Enqueue(key string) {
	if key == "" {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		j.cfg.Logger.WithField("key", key).Warn("janitor closed, media left in place")
		return
	}
	select {
	case j.queue <- key:
	default:
		j.cfg.Logger.WithField("key", key).Warn("janitor queue full, media left in place")
	}
}

func (j *janitor) loop() {
	defer j.wg.Done()
	for key := range j.queue {
		j.sem <- struct{}{}
		j.wg.Add(1)
		go func(key string) {
			defer j.wg.Done()
			defer func() { <-j.sem }()
			j.remove(key)
		}(key)
	}
}

func (j *janitor) remove(key string) {
	// deletions run to completion after the parent context is cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), j.cfg.DeleteTimeout)
	defer cancel()

	logger := j.cfg.Logger.WithField("key", key)
	if err := j.storage.Delete(ctx, key); err != nil {
		logger.Errorf("delete media: %v", err)
		return
	}
	logger.Debug("media deleted")
}
