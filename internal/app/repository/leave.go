// internal/app/repository/leave.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/showteam/teamhub/internal/app/store/documents"
	"github.com/showteam/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

// LeaveOutcome is what remains after a member left a team.
type LeaveOutcome struct {
	Team      models.Team
	Tasks     []models.Task
	Dissolved bool
}

// Leave workflow step names, in execution order.
const (
	StepLoadTasks    = "load-tasks"
	StepDetachMember = "detach-member"
	StepPersistTeam  = "persist-team"
	StepDissolveTeam = "dissolve-team"
)

// StepError reports the step a leave failed in and whether the earlier
// steps were undone.
type StepError struct {
	Step        string
	Compensated bool
	Err         error
}

func (e *StepError) Error() string {
	if e.Compensated {
		return fmt.Sprintf("leave step %s: %v (compensated)", e.Step, e.Err)
	}
	return fmt.Sprintf("leave step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type leaveStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error // nil when nothing to undo
}

// leaveWorkflow removes one member record from a team.
//
//	load-tasks      read the team's tasks                 (no compensation)
//	detach-member   one transaction: pull the record from
//	                every delegate list, push a left_team
//	                history line on every task, delete the
//	                member record                         (re-insert record,
//	                                                       re-add delegates,
//	                                                       push left_team_reverted)
//	persist-team    overwrite the team without the member (none)
//	dissolve-team   delete the team once it has no members (terminal)
//
// A failure in the first three steps runs the compensations of completed
// steps in reverse order. dissolve-team never fails the leave; its error is
// logged and reflected in LeaveOutcome.Dissolved.
type leaveWorkflow struct {
	repo   *TeamRepository
	member models.MemberInfoTeam
	team   models.Team
	at     time.Time

	docs      []documents.Task
	delegated map[string]bool
	out       LeaveOutcome
}

func (w *leaveWorkflow) steps() []leaveStep {
	return []leaveStep{
		{name: StepLoadTasks, run: w.loadTasks},
		{name: StepDetachMember, run: w.detachMember, compensate: w.reattachMember},
		{name: StepPersistTeam, run: w.persistTeam},
	}
}

func (w *leaveWorkflow) run(ctx context.Context) (LeaveOutcome, error) {
	log := w.repo.log.With(zap.String("team_id", w.team.ID), zap.String("member_info_id", w.member.ID))

	var done []leaveStep
	for _, s := range w.steps() {
		if err := s.run(ctx); err != nil {
			compensated := w.undo(ctx, log, done)
			return LeaveOutcome{}, &StepError{Step: s.name, Compensated: compensated, Err: err}
		}
		log.Debug("leave step completed", zap.String("step", s.name))
		done = append(done, s)
	}

	if len(w.out.Team.Members) == 0 {
		if w.repo.DeleteTeam(ctx, w.out.Team) {
			w.out.Dissolved = true
		} else {
			log.Warn("team left empty but not deleted", zap.String("step", StepDissolveTeam))
		}
	}
	log.Info("member left team", zap.Bool("dissolved", w.out.Dissolved))
	return w.out, nil
}

// undo reports whether every compensation succeeded.
func (w *leaveWorkflow) undo(ctx context.Context, log *zap.Logger, done []leaveStep) bool {
	ok := true
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.compensate == nil {
			continue
		}
		if err := s.compensate(ctx); err != nil {
			log.Error("leave compensation failed", zap.String("step", s.name), zap.Error(err))
			ok = false
			continue
		}
		log.Info("leave step compensated", zap.String("step", s.name))
	}
	return ok
}

func (w *leaveWorkflow) loadTasks(ctx context.Context) error {
	docs, tasks, err := w.repo.tasks.loadTeamTasks(ctx, w.team.ID)
	if err != nil {
		return err
	}
	w.docs = docs
	w.delegated = make(map[string]bool)
	for _, d := range docs {
		if contains(d.Delegates, w.member.ID) {
			w.delegated[d.ID] = true
		}
	}
	w.out.Tasks = tasks
	return nil
}

func (w *leaveWorkflow) detachMember(ctx context.Context) error {
	h := documents.History{Timestamp: w.at, Key: models.HistoryLeftTeam}
	err := w.repo.tx.Run(ctx, func(ctx context.Context) error {
		for _, d := range w.docs {
			if err := w.repo.tasks.tasks.DetachMember(ctx, d.ID, w.member.ID, h); err != nil {
				return err
			}
		}
		_, err := w.repo.infos.Delete(ctx, w.member.ID)
		return err
	})
	if err != nil {
		return err
	}
	for i, t := range w.out.Tasks {
		w.out.Tasks[i] = t.WithoutDelegate(w.member.ID).AppendHistory(models.HistoryLeftTeam, w.at)
	}
	return nil
}

func (w *leaveWorkflow) reattachMember(ctx context.Context) error {
	h := documents.History{Timestamp: w.repo.now(), Key: models.HistoryLeftTeamReverted}
	return w.repo.tx.Run(ctx, func(ctx context.Context) error {
		if err := w.repo.infos.Insert(ctx, documents.MemberInfoFromDomain(w.member)); err != nil {
			return err
		}
		for _, d := range w.docs {
			var err error
			if w.delegated[d.ID] {
				err = w.repo.tasks.tasks.ReattachMember(ctx, d.ID, w.member.ID, h)
			} else {
				err = w.repo.tasks.tasks.AddHistory(ctx, d.ID, h)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *leaveWorkflow) persistTeam(ctx context.Context) error {
	updated := w.team.WithoutMember(w.member.ID)
	if err := w.repo.teams.Replace(ctx, documents.TeamFromDomain(updated)); err != nil {
		return err
	}
	w.out.Team = updated
	return nil
}
