// Package postgres provides pgx-backed persistence for the fitsync service.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitsync/internal/domain"
)

// syncTables is the set of tables client sync batches may touch. Identifiers
// cannot be bound as query parameters, so anything outside this list is
// rejected before query building.
var syncTables = map[string]struct{}{
	"workout_sessions": {},
	"workout_sets":     {},
	"sleep_entries":    {},
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Repository implements the domain store interfaces on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RecentSessions returns the user's most recent workout sessions, newest
// first, with nested sets and exercise names. No sessions is not an error.
func (r *Repository) RecentSessions(ctx context.Context, userID string, limit int) ([]domain.WorkoutSession, error) {
	const query = `SELECT id, user_id, start_time FROM workout_sessions
        WHERE user_id=$1 ORDER BY start_time DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.WorkoutSession, 0, limit)
	index := make(map[string]int)
	ids := make([]string, 0, limit)
	for rows.Next() {
		var session domain.WorkoutSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.StartTime); err != nil {
			return nil, err
		}
		index[session.ID] = len(sessions)
		ids = append(ids, session.ID)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	const setsQuery = `SELECT ws.session_id, ws.weight, ws.reps, COALESCE(e.name, '')
        FROM workout_sets ws
        LEFT JOIN exercises e ON e.id = ws.exercise_id
        WHERE ws.session_id = ANY($1)`

	setRows, err := r.pool.Query(ctx, setsQuery, ids)
	if err != nil {
		return nil, err
	}
	defer setRows.Close()

	for setRows.Next() {
		var sessionID string
		var set domain.WorkoutSet
		if err := setRows.Scan(&sessionID, &set.Weight, &set.Reps, &set.ExerciseName); err != nil {
			return nil, err
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].Sets = append(sessions[i].Sets, set)
		}
	}
	if err := setRows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// RecentSleep returns the user's most recent sleep entries, newest first.
func (r *Repository) RecentSleep(ctx context.Context, userID string, limit int) ([]domain.SleepEntry, error) {
	const query = `SELECT user_id, sleep_date, hours_slept, sleep_quality, soreness_level, energy_level
        FROM sleep_entries WHERE user_id=$1 ORDER BY sleep_date DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.SleepEntry, 0, limit)
	for rows.Next() {
		var entry domain.SleepEntry
		if err := rows.Scan(&entry.UserID, &entry.SleepDate, &entry.HoursSlept, &entry.SleepQuality, &entry.SorenessLevel, &entry.EnergyLevel); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetUser fetches the profile row, returning nil when the user does not exist.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT id, name, COALESCE(fitness_goal, ''), COALESCE(current_streak, 0), COALESCE(longest_streak, 0)
        FROM users WHERE id=$1`

	var user domain.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Name, &user.FitnessGoal, &user.CurrentStreak, &user.LongestStreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListExercises returns the full exercise catalog.
func (r *Repository) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM exercises ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]domain.Exercise, 0)
	for rows.Next() {
		var exercise domain.Exercise
		if err := rows.Scan(&exercise.ID, &exercise.Name); err != nil {
			return nil, err
		}
		exercises = append(exercises, exercise)
	}
	return exercises, rows.Err()
}

// Insert adds a row to an allow-listed table with user_id forced to the
// authenticated user. A missing id gets a generated UUID. The inserted row is
// returned as stored.
func (r *Repository) Insert(ctx context.Context, table, userID string, data map[string]any) (map[string]any, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	row := make(map[string]any, len(data)+2)
	for key, value := range data {
		row[key] = value
	}
	row["user_id"] = userID
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}

	columns := make([]string, 0, len(row))
	for column := range row {
		if err := validateColumn(column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[column]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToMap)
}

// Update mutates the row matching both id and user_id, stamping updated_at.
// Zero rows matched is reported as a nil row with nil error, not a failure.
func (r *Repository) Update(ctx context.Context, table, userID string, id any, data map[string]any) (map[string]any, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(data))
	for column := range data {
		// id keys the WHERE clause and user_id scoping is never
		// payload-controlled.
		if column == "id" || column == "user_id" {
			continue
		}
		if err := validateColumn(column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+3)
	for _, column := range columns {
		args = append(args, data[column])
		assignments = append(assignments, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	assignments = append(assignments, fmt.Sprintf("updated_at=$%d", len(args)))

	args = append(args, id)
	idPos := len(args)
	args = append(args, userID)
	userPos := len(args)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id=$%d AND user_id=$%d RETURNING *",
		table, strings.Join(assignments, ", "), idPos, userPos)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	updated, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the row matching both id and user_id.
func (r *Repository) Delete(ctx context.Context, table, userID string, id any) error {
	if err := validateTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id=$1 AND user_id=$2", table)
	_, err := r.pool.Exec(ctx, query, id, userID)
	return err
}

// RecentSessionStarts returns the newest session start times for the user.
func (r *Repository) RecentSessionStarts(ctx context.Context, userID string, limit int) ([]time.Time, error) {
	const query = `SELECT start_time FROM workout_sessions WHERE user_id=$1 ORDER BY start_time DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	starts := make([]time.Time, 0, limit)
	for rows.Next() {
		var start time.Time
		if err := rows.Scan(&start); err != nil {
			return nil, err
		}
		starts = append(starts, start)
	}
	return starts, rows.Err()
}

// StreakCounters reads the stored streak values, defaulting to zero when the
// user row is missing.
func (r *Repository) StreakCounters(ctx context.Context, userID string) (int, int, error) {
	const query = `SELECT COALESCE(current_streak, 0), COALESCE(longest_streak, 0) FROM users WHERE id=$1`

	var current, longest int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&current, &longest)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return current, longest, nil
}

// SetStreak writes current_streak, and longest_streak when provided.
func (r *Repository) SetStreak(ctx context.Context, userID string, current int, longest *int) error {
	if longest != nil {
		_, err := r.pool.Exec(ctx, `UPDATE users SET current_streak=$1, longest_streak=$2 WHERE id=$3`, current, *longest, userID)
		return err
	}
	_, err := r.pool.Exec(ctx, `UPDATE users SET current_streak=$1 WHERE id=$2`, current, userID)
	return err
}

func validateTable(table string) error {
	if _, ok := syncTables[table]; !ok {
		return fmt.Errorf("table %q is not syncable", table)
	}
	return nil
}

func validateColumn(column string) error {
	if !identPattern.MatchString(column) {
		return fmt.Errorf("invalid column name %q", column)
	}
	return nil
}
