package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"intelwire/internal/observability/logging"
)

const (
	cooldownThreshold   = 5                // consecutive failures before a channel is cooled down
	cooldownPeriod      = 5 * time.Minute  // how long a cooled-down channel is skipped
	workerPoolTimeout   = 5 * time.Second  // timeout for acquiring a worker slot
	notificationTimeout = 30 * time.Second // timeout for one delivery
)

// Service dispatches events to channels asynchronously. It implements Sink.
type Service interface {
	Sink

	// ChannelHealth returns the delivery health of every channel for
	// monitoring endpoints.
	ChannelHealth() []ChannelHealthStatus

	// Shutdown stops the service, waiting for in-flight deliveries to
	// finish or the context to expire.
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus describes one channel's current delivery health.
type ChannelHealthStatus struct {
	Name          string
	Enabled       bool
	CooledDown    bool
	DisabledUntil *time.Time
}

type service struct {
	channels       []Channel
	workerPool     chan struct{}
	channelHealth  map[string]*channelHealth
	healthMu       sync.RWMutex
	wg             sync.WaitGroup
	logger         *logging.Logger
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// channelHealth tracks consecutive failures for one channel. A channel that
// keeps failing is skipped for cooldownPeriod instead of being hammered.
type channelHealth struct {
	consecutiveFailures int
	disabledUntil       time.Time
	mu                  sync.Mutex
}

func NewService(channels []Channel, maxConcurrent int, logger *logging.Logger) Service {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:       channels,
		workerPool:     make(chan struct{}, maxConcurrent),
		channelHealth:  make(map[string]*channelHealth),
		logger:         logger,
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}
	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
	}
	return svc
}

func (s *service) Notify(ctx context.Context, event string, payload map[string]any) bool {
	if event == "" {
		s.logger.Warn(ctx, "dropping notification with empty event name",
			logging.WithContext("notify"))
		return false
	}

	requestID := uuid.New().String()

	enabled := 0
	for _, ch := range s.channels {
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(float64(enabled))
	if enabled == 0 {
		s.logger.Debug(ctx, "no notification channels enabled",
			logging.WithContext("notify"),
			logging.WithMetadata(map[string]any{"event": event}))
		return false
	}

	s.logger.Debug(ctx, "dispatching event",
		logging.WithContext("notify"),
		logging.WithRequestID(requestID),
		logging.WithMetadata(map[string]any{"event": event, "enabled_channels": enabled}))

	for _, ch := range s.channels {
		if ch.IsEnabled() {
			channel := ch
			s.wg.Add(1)
			go s.deliver(requestID, channel, event, payload)
		}
	}
	return true
}

// deliver sends one event to one channel in a background goroutine.
func (s *service) deliver(requestID string, channel Channel, event string, payload map[string]any) {
	defer s.wg.Done()

	IncrementActiveGoroutines()
	defer DecrementActiveGoroutines()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(context.Background(), "panic in notification channel",
				logging.WithContext("notify"),
				logging.WithRequestID(requestID),
				logging.WithMetadata(map[string]any{
					"channel": channel.Name(),
					"panic":   r,
					"stack":   string(debug.Stack()),
				}))
		}
	}()

	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-time.After(workerPoolTimeout):
		s.logger.Warn(context.Background(), "notification dropped, worker pool full",
			logging.WithContext("notify"),
			logging.WithRequestID(requestID),
			logging.WithMetadata(map[string]any{"channel": channel.Name(), "event": event}))
		RecordDropped(channel.Name(), "pool_full")
		return
	}

	health := s.getChannelHealth(channel.Name())
	health.mu.Lock()
	if time.Now().Before(health.disabledUntil) {
		health.mu.Unlock()
		RecordDropped(channel.Name(), "cooldown")
		return
	}
	health.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.shutdownCtx, notificationTimeout)
	defer cancel()

	start := time.Now()
	RecordDispatch(channel.Name())
	err := channel.Send(ctx, event, payload)
	duration := time.Since(start)

	health.mu.Lock()
	if err != nil {
		health.consecutiveFailures++
		if health.consecutiveFailures >= cooldownThreshold {
			health.disabledUntil = time.Now().Add(cooldownPeriod)
			s.logger.Error(ctx, "channel cooled down after repeated failures",
				logging.WithContext("notify"),
				logging.WithRequestID(requestID),
				logging.WithMetadata(map[string]any{
					"channel":              channel.Name(),
					"consecutive_failures": health.consecutiveFailures,
				}))
			RecordCooldown(channel.Name())
		}
	} else {
		health.consecutiveFailures = 0
	}
	health.mu.Unlock()

	if err != nil {
		RecordFailure(channel.Name(), duration)
		s.logger.Warn(ctx, "channel delivery failed",
			logging.WithContext("notify"),
			logging.WithRequestID(requestID),
			logging.WithError(err),
			logging.WithMetadata(map[string]any{"channel": channel.Name(), "event": event}))
	} else {
		RecordSuccess(channel.Name(), duration)
	}
}

func (s *service) getChannelHealth(name string) *channelHealth {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.channelHealth[name]
}

func (s *service) ChannelHealth() []ChannelHealthStatus {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		health := s.channelHealth[ch.Name()]

		health.mu.Lock()
		var disabledUntil *time.Time
		cooledDown := false
		if time.Now().Before(health.disabledUntil) {
			cooledDown = true
			until := health.disabledUntil
			disabledUntil = &until
		}
		health.mu.Unlock()

		statuses = append(statuses, ChannelHealthStatus{
			Name:          ch.Name(),
			Enabled:       ch.IsEnabled(),
			CooledDown:    cooledDown,
			DisabledUntil: disabledUntil,
		})
	}
	return statuses
}

func (s *service) Shutdown(ctx context.Context) error {
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
