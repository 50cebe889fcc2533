package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// StepPipeline is the step that carries the overall pipeline status.
const StepPipeline = "pipeline"

type BuildStatusService interface {
	RecordBuildStatus(ctx context.Context, projectID uuid.UUID, input *BuildStatusInput) (*models.BuildStatus, error)
	GetBuildStatus(ctx context.Context, projectID uuid.UUID) (*models.BuildStatus, error)
	GetEvents(ctx context.Context, projectID uuid.UUID, filter EventFilter) ([]models.Event, error)
}

// BuildStatusInput is a pipeline callback. ProfileID must match the project's owner.
type BuildStatusInput struct {
	Status      string
	Step        string
	Message     string
	Logs        string
	DockerImage string
	PipelineID  string
	ProfileID   uuid.UUID
}

type EventFilter struct {
	// EventType keeps only events of that type when set.
	EventType string
	// SortByDate orders newest first; otherwise events come in insertion order.
	SortByDate bool
}

// DefaultEventFilter lists every event newest first.
func DefaultEventFilter() EventFilter {
	return EventFilter{SortByDate: true}
}

type buildStatusService struct {
	projects repository.ProjectRepository
	events   repository.EventRepository
	clock    clock.PassiveClock
}

func NewBuildStatusService(projects repository.ProjectRepository, events repository.EventRepository, clk clock.PassiveClock) BuildStatusService {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &buildStatusService{projects: projects, events: events, clock: clk}
}

var _ BuildStatusService = (*buildStatusService)(nil)

func (s *buildStatusService) RecordBuildStatus(ctx context.Context, projectID uuid.UUID, input *BuildStatusInput) (*models.BuildStatus, error) {
	if input.Step == "" || input.Status == "" {
		return nil, appErr.New(appErr.CodeInvalid, "step and status are required")
	}

	var out models.BuildStatus
	err := s.projects.MutateBuildState(ctx, projectID, func(p *models.Project) (*models.Event, error) {
		if p.ProfileID != input.ProfileID {
			return nil, appErr.New(appErr.CodeUnauthorized, "profile id mismatch").
				WithMeta("project_id", projectID.String())
		}

		now := s.clock.Now()
		if input.Step == StepPipeline {
			p.Status = input.Status
			if input.Status == models.PipelineStartedStatus {
				p.Logs = ""
				p.DockerImage = ""
			}
		}
		if !blank(input.Logs) {
			p.Logs = appendEntry(p.Logs, logHeader(input.Step, now)+","+input.Logs)
		}
		if !blank(input.DockerImage) {
			p.DockerImage = appendEntry(p.DockerImage, input.DockerImage)
		}
		p.UpdatedAt = now
		out = p.BuildStatus()

		return &models.Event{
			Type:       models.EventTypePipeline,
			PipelineID: input.PipelineID,
			Step:       input.Step,
			Status:     input.Status,
			Content:    fmt.Sprintf("Step '%s' has %s.", input.Step, strings.ToLower(input.Status)),
			CreatedAt:  now,
		}, nil
	})
	if err != nil {
		if appErr.IsCode(err, appErr.CodeUnauthorized) {
			logger.L().Warn("build status rejected", zap.String("project_id", projectID.String()), zap.String("profile_id", input.ProfileID.String()))
		}
		return nil, err
	}

	logger.L().Info("build status recorded",
		zap.String("project_id", projectID.String()),
		zap.String("step", input.Step),
		zap.String("status", input.Status),
		zap.String("pipeline_id", input.PipelineID),
	)
	return &out, nil
}

func (s *buildStatusService) GetBuildStatus(ctx context.Context, projectID uuid.UUID) (*models.BuildStatus, error) {
	var p models.Project
	if err := s.projects.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	bs := p.BuildStatus()
	return &bs, nil
}

func (s *buildStatusService) GetEvents(ctx context.Context, projectID uuid.UUID, filter EventFilter) ([]models.Event, error) {
	et := models.EventType(filter.EventType)
	if et != "" && !et.Valid() {
		return nil, appErr.New(appErr.CodeInvalid, "unknown event type").WithMeta("event_type", filter.EventType)
	}
	if err := s.projects.GetByID(ctx, projectID, &models.Project{}); err != nil {
		return nil, err
	}
	return s.events.ListByProject(ctx, projectID, repository.EventQuery{Type: et, NewestFirst: filter.SortByDate})
}

func logHeader(step string, at time.Time) string {
	h := fmt.Sprintf("\n<hr/>\nStep: %s | Time: %s\n", step, at.Format(time.RFC3339))
	return base64.StdEncoding.EncodeToString([]byte(h))
}

func appendEntry(history, entry string) string {
	if history == "" {
		return entry
	}
	return history + "," + entry
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
