// internal/app/repository/subscription.go
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/showteam/teamhub/internal/app/session"
	"github.com/showteam/teamhub/internal/app/system/metrics"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

// TeamSubscription delivers the session member's team list each time the
// teams collection changes. Call Unsubscribe to release it.
type TeamSubscription struct {
	updates chan []models.Team
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Updates is closed once the subscription ends.
func (s *TeamSubscription) Updates() <-chan []models.Team { return s.updates }

// Unsubscribe stops the subscription and waits for its goroutine to exit.
// Safe to call more than once.
func (s *TeamSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// SubscribeTeams opens a change feed on the teams collection and sends the
// member's current teams first, then a fresh list after every change. When
// the feed fails an empty list is sent and the subscription ends. An
// error is returned only when the feed cannot be opened.
func (r *TeamRepository) SubscribeTeams(ctx context.Context, sess session.Session) (*TeamSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	feed, err := r.teams.Watch(ctx)
	if err != nil {
		cancel()
		r.failed("subscribe_teams", err, zap.String("user_id", sess.UserID()))
		return nil, fmt.Errorf("open team feed: %w", err)
	}

	sub := &TeamSubscription{
		updates: make(chan []models.Team, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	log := r.log.With(zap.String("user_id", sess.UserID()))
	metrics.SubscriptionOpened()

	go func() {
		defer close(sub.done)
		defer close(sub.updates)
		defer metrics.SubscriptionClosed()
		defer func() {
			if err := feed.Close(context.Background()); err != nil {
				log.Debug("closing team feed", zap.Error(err))
			}
		}()

		send := func(teams []models.Team) bool {
			select {
			case sub.updates <- teams:
				return true
			case <-ctx.Done():
				return false
			}
		}

		teams, _ := r.ListTeamsForMember(ctx, sess)
		if !send(teams) {
			return
		}
		for feed.Next(ctx) {
			teams, _ := r.ListTeamsForMember(ctx, sess)
			if !send(teams) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		log.Error("team feed stopped", zap.Error(feed.Err()))
		metrics.Repo("subscribe_teams", false)
		send([]models.Team{})
	}()

	metrics.Repo("subscribe_teams", true)
	return sub, nil
}
