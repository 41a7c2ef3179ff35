package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/planline/planline/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

const eventColumns = `id, calendar_id, title, description, location, start_at, end_at, all_day,
	recurrence, exceptions, group_event, parent_group_id, task_id, ics_rule, created_at, updated_at`

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in model.Event) error {
	return execEventInsert(ctx, r.db, in)
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, err
	}
	return ev, nil
}

func (r *SQLiteRepository) UpdateEvent(ctx context.Context, in model.Event) error {
	res, err := execEventUpdate(ctx, r.db, in)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	args := make([]any, 0, 3)
	if filter.CalendarID != "" {
		query += ` WHERE calendar_id = ?`
		args = append(args, filter.CalendarID)
	}
	query += ` ORDER BY start_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ReplaceEvents(ctx context.Context, updated []model.Event, deleted []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return fmt.Errorf("replace delete %s: %w", id, err)
		}
	}
	for _, ev := range updated {
		res, err := execEventUpdate(ctx, tx, ev)
		if err != nil {
			return fmt.Errorf("replace update %s: %w", ev.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			if err := execEventInsert(ctx, tx, ev); err != nil {
				return fmt.Errorf("replace insert %s: %w", ev.ID, err)
			}
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execEventInsert(ctx context.Context, db execer, in model.Event) error {
	recurrence, exceptions, err := marshalEventRules(in)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.CalendarID, in.Title, in.Description, in.Location,
		mustTime(in.Start), mustTime(in.End), boolInt(in.AllDay),
		recurrence, exceptions, boolInt(in.GroupEvent), in.ParentGroupID,
		in.TaskID, in.ICSRule, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func execEventUpdate(ctx context.Context, db execer, in model.Event) (sql.Result, error) {
	recurrence, exceptions, err := marshalEventRules(in)
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, `
		UPDATE events
		SET calendar_id = ?, title = ?, description = ?, location = ?, start_at = ?, end_at = ?,
			all_day = ?, recurrence = ?, exceptions = ?, group_event = ?, parent_group_id = ?,
			task_id = ?, ics_rule = ?, updated_at = ?
		WHERE id = ?`,
		in.CalendarID, in.Title, in.Description, in.Location,
		mustTime(in.Start), mustTime(in.End), boolInt(in.AllDay),
		recurrence, exceptions, boolInt(in.GroupEvent), in.ParentGroupID,
		in.TaskID, in.ICSRule, mustTime(in.UpdatedAt), in.ID,
	)
}

func marshalEventRules(in model.Event) (recurrence, exceptions any, err error) {
	if in.Recurrence != nil {
		b, mErr := json.Marshal(in.Recurrence)
		if mErr != nil {
			return nil, nil, fmt.Errorf("marshal recurrence: %w", mErr)
		}
		recurrence = string(b)
	}
	if len(in.Exceptions) > 0 {
		b, mErr := json.Marshal(in.Exceptions)
		if mErr != nil {
			return nil, nil, fmt.Errorf("marshal exceptions: %w", mErr)
		}
		exceptions = string(b)
	}
	return recurrence, exceptions, nil
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, content, project_id, parent_task_id, duration_minutes, impact, urgency, due_date, blocked_by, my_day, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Content, in.ProjectID, in.ParentTaskID, in.DurationMinutes,
		nullInt(in.Impact), nullInt(in.Urgency), nullTime(in.DueDate), in.BlockedBy,
		boolInt(in.MyDay), boolInt(in.Completed), mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, content, project_id, parent_task_id, duration_minutes, impact, urgency, due_date, blocked_by, my_day, completed, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET content = ?, project_id = ?, parent_task_id = ?, duration_minutes = ?, impact = ?, urgency = ?, due_date = ?, blocked_by = ?, my_day = ?, completed = ?, updated_at = ?
		WHERE id = ?`,
		in.Content, in.ProjectID, in.ParentTaskID, in.DurationMinutes,
		nullInt(in.Impact), nullInt(in.Urgency), nullTime(in.DueDate), in.BlockedBy,
		boolInt(in.MyDay), boolInt(in.Completed), mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT id, content, project_id, parent_task_id, duration_minutes, impact, urgency, due_date, blocked_by, my_day, completed, created_at, updated_at FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.ProjectID != "" {
		clauses = append(clauses, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCalendar(ctx context.Context, in model.Calendar) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calendars (id, name, color, visible, is_default, read_only, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Color, boolInt(in.Visible), boolInt(in.Default), boolInt(in.ReadOnly),
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetCalendar(ctx context.Context, id string) (model.Calendar, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, color, visible, is_default, read_only, created_at, updated_at
		FROM calendars WHERE id = ?`, id)
	cal, err := scanCalendar(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Calendar{}, ErrNotFound
		}
		return model.Calendar{}, err
	}
	return cal, nil
}

func (r *SQLiteRepository) UpdateCalendar(ctx context.Context, in model.Calendar) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calendars
		SET name = ?, color = ?, visible = ?, is_default = ?, read_only = ?, updated_at = ?
		WHERE id = ?`,
		in.Name, in.Color, boolInt(in.Visible), boolInt(in.Default), boolInt(in.ReadOnly),
		mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteCalendar(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListCalendars(ctx context.Context) ([]model.Calendar, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, visible, is_default, read_only, created_at, updated_at
		FROM calendars ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Calendar, 0)
	for rows.Next() {
		cal, scanErr := scanCalendar(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, cal)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, in model.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, parent_id, collapsed, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.ParentID, boolInt(in.Collapsed), in.Order,
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, parent_id, collapsed, sort_order, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, ErrNotFound
		}
		return model.Project{}, err
	}
	return project, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, in model.Project) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, parent_id = ?, collapsed = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		in.Name, in.ParentID, boolInt(in.Collapsed), in.Order, mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parent_id, collapsed, sort_order, created_at, updated_at
		FROM projects ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Project, 0)
	for rows.Next() {
		project, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, project)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (model.Event, error) {
	var out model.Event
	var start, end, created, updated string
	var allDay, groupEvent int
	var recurrence, exceptions sql.NullString
	if err := s.Scan(&out.ID, &out.CalendarID, &out.Title, &out.Description, &out.Location,
		&start, &end, &allDay, &recurrence, &exceptions, &groupEvent,
		&out.ParentGroupID, &out.TaskID, &out.ICSRule, &created, &updated); err != nil {
		return model.Event{}, err
	}
	var err error
	if out.Start, err = parseRequiredTime(start); err != nil {
		return model.Event{}, err
	}
	if out.End, err = parseRequiredTime(end); err != nil {
		return model.Event{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Event{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Event{}, err
	}
	out.AllDay = allDay == 1
	out.GroupEvent = groupEvent == 1
	if recurrence.Valid && recurrence.String != "" {
		var rule model.RecurrenceRule
		if err := json.Unmarshal([]byte(recurrence.String), &rule); err != nil {
			return model.Event{}, fmt.Errorf("unmarshal recurrence: %w", err)
		}
		out.Recurrence = &rule
	}
	if exceptions.Valid && exceptions.String != "" {
		var ex model.ExceptionMap
		if err := json.Unmarshal([]byte(exceptions.String), &ex); err != nil {
			return model.Event{}, fmt.Errorf("unmarshal exceptions: %w", err)
		}
		out.Exceptions = ex
	}
	return out, nil
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var impact, urgency sql.NullInt64
	var due sql.NullString
	var myDay, completed int
	var created, updated string
	if err := s.Scan(&out.ID, &out.Content, &out.ProjectID, &out.ParentTaskID, &out.DurationMinutes,
		&impact, &urgency, &due, &out.BlockedBy, &myDay, &completed, &created, &updated); err != nil {
		return model.Task{}, err
	}
	if impact.Valid {
		v := int(impact.Int64)
		out.Impact = &v
	}
	if urgency.Valid {
		v := int(urgency.Int64)
		out.Urgency = &v
	}
	dueDate, err := parseNullableTime(due)
	if err != nil {
		return model.Task{}, err
	}
	out.DueDate = dueDate
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Task{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Task{}, err
	}
	out.MyDay = myDay == 1
	out.Completed = completed == 1
	return out, nil
}

func scanCalendar(s scanner) (model.Calendar, error) {
	var out model.Calendar
	var visible, isDefault, readOnly int
	var created, updated string
	if err := s.Scan(&out.ID, &out.Name, &out.Color, &visible, &isDefault, &readOnly, &created, &updated); err != nil {
		return model.Calendar{}, err
	}
	var err error
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Calendar{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Calendar{}, err
	}
	out.Visible = visible == 1
	out.Default = isDefault == 1
	out.ReadOnly = readOnly == 1
	return out, nil
}

func scanProject(s scanner) (model.Project, error) {
	var out model.Project
	var collapsed int
	var created, updated string
	if err := s.Scan(&out.ID, &out.Name, &out.ParentID, &collapsed, &out.Order, &created, &updated); err != nil {
		return model.Project{}, err
	}
	var err error
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Project{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Project{}, err
	}
	out.Collapsed = collapsed == 1
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
