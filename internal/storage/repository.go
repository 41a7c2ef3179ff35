package storage

import (
	"context"
	"errors"

	"github.com/planline/planline/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	CreateEvent(ctx context.Context, in model.Event) error
	GetEvent(ctx context.Context, id string) (model.Event, error)
	UpdateEvent(ctx context.Context, in model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]model.Event, error)

	// ReplaceEvents persists a mutation result atomically: every event in
	// updated is upserted as a whole record and every id in deleted is
	// removed, all in one transaction.
	ReplaceEvents(ctx context.Context, updated []model.Event, deleted []string) error

	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)

	CreateCalendar(ctx context.Context, in model.Calendar) error
	GetCalendar(ctx context.Context, id string) (model.Calendar, error)
	UpdateCalendar(ctx context.Context, in model.Calendar) error
	DeleteCalendar(ctx context.Context, id string) error
	ListCalendars(ctx context.Context) ([]model.Calendar, error)

	CreateProject(ctx context.Context, in model.Project) error
	GetProject(ctx context.Context, id string) (model.Project, error)
	UpdateProject(ctx context.Context, in model.Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context) ([]model.Project, error)
}

type EventListFilter struct {
	CalendarID string
	Limit      int
	Offset     int
}

type TaskListFilter struct {
	ProjectID string
	Completed *bool
	Limit     int
	Offset    int
}
