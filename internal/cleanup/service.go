// Package cleanup reaps expired login sessions from the mock API
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/birbparty/birb-baas/internal/api"
	"github.com/birbparty/birb-baas/internal/storage"
	"github.com/birbparty/birb-baas/internal/telemetry"
)

// SessionStore is the part of the mock API state the service works on
type SessionStore interface {
	ExpiredSessions(cutoff time.Time) []api.SessionInfo
	Logout(apiKey, token string) bool
	SessionCount() int
}

// Publisher sends cleanup notifications; *nats.Conn satisfies it
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Service revokes sessions that expired more than GracePeriod ago
type Service struct {
	store   SessionStore
	archive storage.BlobStore
	queue   Publisher
	metrics *telemetry.Metrics
	log     logrus.FieldLogger
	config  Config
	now     func() time.Time
}

// Config contains configuration for the cleanup service
type Config struct {
	GracePeriod         time.Duration
	Interval            time.Duration
	DryRun              bool
	ArchiveBeforeDelete bool
	NotifySubject       string
}

// Notification is published for every reaped session
type Notification struct {
	APIKey      string    `json:"api_key"`
	UserName    string    `json:"user_name"`
	ExpiredAt   time.Time `json:"expired_at"`
	CleanupTime time.Time `json:"cleanup_time"`
	Archived    bool      `json:"archived"`
	ArchivePath string    `json:"archive_path,omitempty"`
}

// NewService creates a new cleanup service. archive and queue are optional.
func NewService(
	store SessionStore,
	archive storage.BlobStore,
	queue Publisher,
	metrics *telemetry.Metrics,
	log logrus.FieldLogger,
	config Config,
) *Service {
	// Set defaults
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	if config.NotifySubject == "" {
		config.NotifySubject = "baas.sessions.expired"
	}

	return &Service{
		store:   store,
		archive: archive,
		queue:   queue,
		metrics: metrics,
		log:     log,
		config:  config,
		now:     time.Now,
	}
}

// Start runs cleanup cycles until ctx is done
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.log.WithFields(logrus.Fields{
		"dryRun":   s.config.DryRun,
		"interval": s.config.Interval,
	}).Info("Cleanup service started")

	// Run immediately on start
	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.log.Info("Cleanup service stopped")
			return
		}
	}
}

// RunOnce executes one cleanup cycle and returns the number of sessions
// reaped.
func (s *Service) RunOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.GracePeriod)

	cleaned := 0
	for _, sess := range s.store.ExpiredSessions(cutoff) {
		if err := s.cleanupSession(ctx, sess); err != nil {
			s.log.WithError(err).WithField("apiKey", sess.APIKey).Error("Failed to clean up session")
			continue
		}
		cleaned++
	}

	if s.metrics != nil {
		s.metrics.UpdateActiveSessions(s.store.SessionCount())
	}
	if cleaned > 0 {
		s.log.WithField("sessions", cleaned).Info("Cleanup cycle completed")
	}
	return cleaned
}

func (s *Service) cleanupSession(ctx context.Context, sess api.SessionInfo) error {
	notification := Notification{
		APIKey:      sess.APIKey,
		UserName:    sess.UserName,
		ExpiredAt:   sess.ExpiresAt,
		CleanupTime: s.now().UTC(),
	}

	if s.config.DryRun {
		s.log.WithFields(logrus.Fields{
			"apiKey": sess.APIKey,
			"user":   sess.UserName,
		}).Info("DRY RUN: would have revoked session")
		return nil
	}

	if s.config.ArchiveBeforeDelete && s.archive != nil {
		path, err := s.archiveSession(ctx, notification, sess.Token)
		if err != nil {
			return fmt.Errorf("failed to archive: %w", err)
		}
		notification.Archived = true
		notification.ArchivePath = path
	}

	s.store.Logout(sess.APIKey, sess.Token)

	if err := s.sendNotification(notification); err != nil {
		s.log.WithError(err).Warn("Failed to send cleanup notification")
	}
	return nil
}

// archiveSession stores an audit record of the session in the blob store
func (s *Service) archiveSession(ctx context.Context, n Notification, token string) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", err
	}

	suffix := token
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	path := fmt.Sprintf("archive/sessions/%s/%s-%s.json",
		n.APIKey, n.ExpiredAt.UTC().Format("20060102T150405"), suffix)

	if err := s.archive.Put(ctx, path, "application/json", data); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return path, nil
}

// sendNotification publishes a cleanup notification to the message queue
func (s *Service) sendNotification(n Notification) error {
	if s.queue == nil {
		return nil
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return s.queue.PublishMsg(&nats.Msg{
		Subject: s.config.NotifySubject,
		Data:    data,
		Header: nats.Header{
			"api-key":      []string{n.APIKey},
			"cleanup-time": []string{n.CleanupTime.Format(time.RFC3339)},
		},
	})
}
