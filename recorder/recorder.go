// Package recorder keeps a sqlite history of published goals.
package recorder

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"
	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"go.viam.com/navgoal/goal"
	spatial "go.viam.com/navgoal/spatialmath"
)

const schema = `
	CREATE TABLE IF NOT EXISTS goals (
		goal_id       INTEGER PRIMARY KEY AUTOINCREMENT,
		side          TEXT    NOT NULL,
		frame_id      TEXT    NOT NULL,
		stamp_ns      BIGINT  NOT NULL,
		x             DOUBLE  NOT NULL,
		y             DOUBLE  NOT NULL,
		z             DOUBLE  NOT NULL,
		qw            DOUBLE  NOT NULL,
		qx            DOUBLE  NOT NULL,
		qy            DOUBLE  NOT NULL,
		qz            DOUBLE  NOT NULL,
		recorded_ns   BIGINT  NOT NULL
	);
	CREATE INDEX IF NOT EXISTS goals_recorded ON goals (recorded_ns);
`

// An Entry is one published goal.
type Entry struct {
	ID         int64
	Side       goal.Side
	Goal       goal.GoalPose
	RecordedAt time.Time
}

// Recorder appends published goals to a sqlite database. It is safe for concurrent use.
type Recorder struct {
	db *sql.DB
}

// Open opens, creating if needed, the goal history at path. ":memory:" keeps the history in
// memory.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open goal history %s", path)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, db.Close()), "cannot create goal history schema")
	}
	return &Recorder{db: db}, nil
}

// Record stores a goal published at recordedAt for side.
func (r *Recorder) Record(ctx context.Context, side goal.Side, g goal.GoalPose, recordedAt time.Time) error {
	pt := g.Pose.Point()
	q := g.Pose.Orientation()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (side, frame_id, stamp_ns, x, y, z, qw, qx, qy, qz, recorded_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		side.String(), g.FrameID, g.Stamp.UnixNano(),
		pt.X, pt.Y, pt.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		recordedAt.UnixNano(),
	)
	return errors.Wrap(err, "cannot record goal")
}

// Recent returns up to limit goals, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT goal_id, side, frame_id, stamp_ns, x, y, z, qw, qx, qy, qz, recorded_ns
		FROM goals
		ORDER BY recorded_ns DESC, goal_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "cannot query goal history")
	}
	defer utils.UncheckedErrorFunc(rows.Close)

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			side, frame       string
			stampNs, recorded int64
			pt                r3.Vector
			q                 quat.Number
		)
		if err := rows.Scan(
			&e.ID, &side, &frame, &stampNs,
			&pt.X, &pt.Y, &pt.Z,
			&q.Real, &q.Imag, &q.Jmag, &q.Kmag,
			&recorded,
		); err != nil {
			return nil, errors.Wrap(err, "cannot read goal history")
		}
		e.Side = goal.Left
		if side == goal.Right.String() {
			e.Side = goal.Right
		}
		e.Goal = goal.GoalPose{
			Stamp:   time.Unix(0, stampNs).UTC(),
			FrameID: frame,
			Pose:    spatial.NewPose(pt, q),
		}
		e.RecordedAt = time.Unix(0, recorded).UTC()
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "cannot read goal history")
}

// Count returns how many goals have been recorded.
func (r *Recorder) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals`).Scan(&n)
	return n, errors.Wrap(err, "cannot count goal history")
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
