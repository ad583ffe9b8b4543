// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"time"

	"github.com/showteam/teamhub/internal/app/store/audit"
	"github.com/showteam/teamhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	All = "all" // store and zap
	DB  = "db"
	Log = "log"
	Off = "off"
)

// Config picks a destination per category.
type Config struct {
	Auth string // sign-in and sign-out
	Team string // team and membership changes
}

// Store persists and reads audit events. *audit.Store satisfies it.
type Store interface {
	Log(ctx context.Context, event audit.Event) error
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Logger records audit events to the store and to zap. A nil *Logger
// drops everything, so handlers can run without one.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config
	now    func() time.Time
}

func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryTeam:
		s = l.config.Team
	}
	if s == "" {
		return All
	}
	return s
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.TeamID != "" {
		fields = append(fields, zap.String("team_id", event.TeamID))
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Record writes the event wherever its category is configured to go. A
// store failure is logged and otherwise ignored.
func (l *Logger) Record(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	setting := l.setting(event.Category)
	if setting == Off {
		return
	}
	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

// TeamActivity returns the team's most recent events, newest first.
func (l *Logger) TeamActivity(ctx context.Context, teamID string, limit, offset int64) ([]audit.Event, error) {
	if l == nil {
		return []audit.Event{}, nil
	}
	return l.store.Query(ctx, audit.QueryFilter{
		TeamID:   teamID,
		Category: audit.CategoryTeam,
		Limit:    limit,
		Offset:   offset,
	})
}

func requestEvent(r *http.Request, category, eventType string) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	}
}

// --- Session events ---

func (l *Logger) SignedIn(ctx context.Context, r *http.Request, userID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignedIn)
	e.UserID, e.ActorID = userID, userID
	l.Record(ctx, e)
}

// SignInFailed records a rejected sign-in; userID is what was attempted.
func (l *Logger) SignInFailed(ctx context.Context, r *http.Request, userID, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignInFailed)
	e.Success = false
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_user_id": userID}
	l.Record(ctx, e)
}

func (l *Logger) SignedOut(ctx context.Context, r *http.Request, userID string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignedOut)
	e.UserID, e.ActorID = userID, userID
	l.Record(ctx, e)
}

// --- Team events ---

func (l *Logger) team(ctx context.Context, r *http.Request, eventType, actorID, teamID, userID string, details map[string]string) {
	e := requestEvent(r, audit.CategoryTeam, eventType)
	e.ActorID = actorID
	e.TeamID = teamID
	e.UserID = userID
	e.Details = details
	l.Record(ctx, e)
}

func (l *Logger) TeamCreated(ctx context.Context, r *http.Request, actorID, teamID, name string) {
	l.team(ctx, r, audit.EventTeamCreated, actorID, teamID, "", map[string]string{"name": name})
}

func (l *Logger) TeamUpdated(ctx context.Context, r *http.Request, actorID, teamID, name string) {
	l.team(ctx, r, audit.EventTeamUpdated, actorID, teamID, "", map[string]string{"name": name})
}

func (l *Logger) TeamDeleted(ctx context.Context, r *http.Request, actorID, teamID, name string) {
	l.team(ctx, r, audit.EventTeamDeleted, actorID, teamID, "", map[string]string{"name": name})
}

func (l *Logger) JoinRequested(ctx context.Context, r *http.Request, teamID, userID string) {
	l.team(ctx, r, audit.EventJoinRequested, userID, teamID, userID, nil)
}

func (l *Logger) RequestAccepted(ctx context.Context, r *http.Request, actorID, teamID, userID, role string) {
	l.team(ctx, r, audit.EventRequestAccepted, actorID, teamID, userID, map[string]string{"role": role})
}

// RequestDeleted covers both a declined request and a withdrawn one.
func (l *Logger) RequestDeleted(ctx context.Context, r *http.Request, actorID, teamID, userID string) {
	l.team(ctx, r, audit.EventRequestDeleted, actorID, teamID, userID, nil)
}

func (l *Logger) RoleChanged(ctx context.Context, r *http.Request, actorID, teamID, userID, role string) {
	l.team(ctx, r, audit.EventRoleChanged, actorID, teamID, userID, map[string]string{"role": role})
}

func (l *Logger) ParticipationChanged(ctx context.Context, r *http.Request, actorID, teamID, userID, participation string) {
	l.team(ctx, r, audit.EventParticipationChanged, actorID, teamID, userID, map[string]string{"participation": participation})
}

func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, teamID, userID string) {
	l.team(ctx, r, audit.EventMemberRemoved, actorID, teamID, userID, nil)
}

func (l *Logger) MemberLeft(ctx context.Context, r *http.Request, teamID, userID string, dissolved bool) {
	details := map[string]string{"dissolved": "false"}
	if dissolved {
		details["dissolved"] = "true"
	}
	l.team(ctx, r, audit.EventMemberLeft, userID, teamID, userID, details)
}
