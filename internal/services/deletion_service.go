package services

import (
	"context"
	"errors"
	"time"

	"github.com/desp-aas/project-management/internal/identity"
	"github.com/desp-aas/project-management/internal/metrics"
	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/poll"
	"github.com/desp-aas/project-management/internal/provisioner"
	"github.com/desp-aas/project-management/internal/repository"
	"github.com/desp-aas/project-management/internal/supervisor"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultDeletionTimeout = 600 * time.Second

	DeletionAccepted = "accepted"
)

// DeletionJob is the detached part of a project deletion.
type DeletionJob struct {
	ProjectID uuid.UUID
	// ServerID is set when the VM teardown was accepted and must be awaited.
	ServerID    uuid.UUID
	AwaitServer bool
	// ScheduledAt anchors the server wait window.
	ScheduledAt time.Time
}

// DeletionTicket is the immediate answer to a deletion request.
type DeletionTicket struct {
	Status         string `json:"status"`
	AwaitingServer bool   `json:"awaiting_server"`
}

// DeletionScheduler hands a job to whatever runs it after the request returns.
type DeletionScheduler interface {
	Schedule(ctx context.Context, job DeletionJob) error
}

// DeletionRunner executes a scheduled job: await the server, clean up identity, remove the project.
type DeletionRunner interface {
	Run(ctx context.Context, job DeletionJob) error
}

type DeletionService interface {
	DeleteProject(ctx context.Context, projectID uuid.UUID) (*DeletionTicket, error)
	DeletionRunner
}

type DeletionDeps struct {
	Projects    repository.ProjectRepository
	Servers     repository.ServerRepository
	Provisioner provisioner.Provisioner
	Realms      identity.RealmService

	// Scheduler defaults to running jobs on Supervisor.
	Scheduler  DeletionScheduler
	Supervisor *supervisor.Supervisor

	PollInterval time.Duration
	Timeout      time.Duration
	Clock        clock.Clock
}

type deletionService struct {
	DeletionDeps
}

func NewDeletionService(deps DeletionDeps) DeletionService {
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultDeletionTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	s := &deletionService{DeletionDeps: deps}
	if s.Scheduler == nil {
		s.Scheduler = NewSupervisedScheduler(deps.Supervisor, s)
	}
	return s
}

var _ DeletionService = (*deletionService)(nil)

func (s *deletionService) DeleteProject(ctx context.Context, projectID uuid.UUID) (*DeletionTicket, error) {
	log := logger.L().With(zap.String("project_id", projectID.String()))

	if err := s.Projects.GetByID(ctx, projectID, &models.Project{}); err != nil {
		return nil, err
	}

	srv, err := s.Servers.GetByProject(ctx, projectID)
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	if srv == nil || srv.Deleted() {
		return s.scheduleCleanup(ctx, projectID)
	}

	if err := s.Provisioner.DeleteServer(ctx, srv.ID); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			log.Info("server already gone", zap.String("server_id", srv.ID.String()))
			if err := s.Servers.SetState(ctx, srv.ID, models.ServerStateDeleted); err != nil {
				log.Warn("server mirror not updated", zap.String("server_id", srv.ID.String()), zap.Error(err))
			}
			return s.scheduleCleanup(ctx, projectID)
		}
		log.Error("server deletion refused, project kept", zap.String("server_id", srv.ID.String()), zap.Error(err))
		return nil, err
	}

	job := DeletionJob{ProjectID: projectID, ServerID: srv.ID, AwaitServer: true, ScheduledAt: s.Clock.Now()}
	if err := s.Scheduler.Schedule(ctx, job); err != nil {
		return nil, err
	}
	log.Info("server deletion accepted, project deletion scheduled", zap.String("server_id", srv.ID.String()))
	return &DeletionTicket{Status: DeletionAccepted, AwaitingServer: true}, nil
}

func (s *deletionService) scheduleCleanup(ctx context.Context, projectID uuid.UUID) (*DeletionTicket, error) {
	if err := s.Scheduler.Schedule(ctx, DeletionJob{ProjectID: projectID}); err != nil {
		return nil, err
	}
	logger.L().Info("project deletion scheduled", zap.String("project_id", projectID.String()))
	return &DeletionTicket{Status: DeletionAccepted}, nil
}

func (s *deletionService) Run(ctx context.Context, job DeletionJob) error {
	log := logger.L().With(zap.String("project_id", job.ProjectID.String()))

	if job.AwaitServer {
		res := s.awaitServer(ctx, job)
		metrics.ServerWaitOutcomes.WithLabelValues(res.Outcome.String()).Inc()
		switch res.Outcome {
		case poll.Cancelled:
			log.Warn("project deletion aborted while waiting for server", zap.Int("attempts", res.Attempts))
			return ctx.Err()
		case poll.Succeeded:
			if err := s.Servers.SetState(ctx, job.ServerID, models.ServerStateDeleted); err != nil {
				log.Warn("server mirror not updated", zap.String("server_id", job.ServerID.String()), zap.Error(err))
			}
			log.Info("server deleted", zap.String("server_id", job.ServerID.String()), zap.Duration("elapsed", res.Elapsed))
		}
	}

	if err := s.Realms.CleanupRealm(ctx, job.ProjectID); err != nil {
		log.Error("identity cleanup failed, deleting project anyway", zap.Error(err))
	}

	if err := s.Projects.DeleteCascade(ctx, job.ProjectID); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			log.Info("project already deleted")
			return nil
		}
		log.Error("project deletion failed", zap.Error(err))
		return err
	}
	metrics.ProjectsDeleted.Inc()
	log.Info("project deleted")
	return nil
}

func (s *deletionService) awaitServer(ctx context.Context, job DeletionJob) poll.Result {
	log := logger.L().With(zap.String("project_id", job.ProjectID.String()), zap.String("server_id", job.ServerID.String()))

	return poll.Until(ctx, poll.Options{
		Interval: s.PollInterval,
		Timeout:  s.Timeout,
		Start:    job.ScheduledAt,
		Clock:    s.Clock,
		OnError: func(attempt int, err error) {
			log.Warn("server status query failed", zap.Int("attempt", attempt), zap.Error(err))
		},
		OnTimeout: func(elapsed time.Duration, attempts int) {
			log.Warn("server not deleted within timeout, deleting project anyway",
				zap.Duration("elapsed", elapsed),
				zap.Int("attempts", attempts),
			)
		},
	}, func(ctx context.Context) (bool, error) {
		st, err := s.Provisioner.GetServer(ctx, job.ServerID)
		if err != nil {
			return false, err
		}
		return !st.Found || st.State == models.ServerStateDeleted, nil
	})
}

type supervisedScheduler struct {
	sup    *supervisor.Supervisor
	runner DeletionRunner
}

// NewSupervisedScheduler runs deletion jobs in-process on sup.
func NewSupervisedScheduler(sup *supervisor.Supervisor, runner DeletionRunner) DeletionScheduler {
	return &supervisedScheduler{sup: sup, runner: runner}
}

func (s *supervisedScheduler) Schedule(_ context.Context, job DeletionJob) error {
	if s.sup == nil {
		return appErr.New(appErr.CodeInternal, "no deletion executor configured")
	}
	err := s.sup.Go("project_delete", func(ctx context.Context) error {
		return s.runner.Run(ctx, job)
	})
	if errors.Is(err, supervisor.ErrClosed) {
		return appErr.Wrap(err, appErr.CodeUnavailable, "service is shutting down")
	}
	return err
}
