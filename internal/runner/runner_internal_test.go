package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/manifest-migrate/internal/database"
	"github.com/aqasim81/manifest-migrate/internal/executor"
	"github.com/aqasim81/manifest-migrate/internal/migration"
)

// mockTracker implements StateTracker. Writes are staged until the fake
// transaction commits, so rolled-back units leave applied untouched.
type mockTracker struct {
	ensureErr   error
	existsErr   error
	recordErr   error
	unrecordErr error
	applied     map[string]bool
	staged      map[string]bool
	checked     []string
}

func newMockTracker(applied ...string) *mockTracker {
	m := &mockTracker{applied: make(map[string]bool)}
	for _, name := range applied {
		m.applied[name] = true
	}

	return m
}

func (m *mockTracker) EnsureTable(_ context.Context) error { return m.ensureErr }

func (m *mockTracker) Exists(_ context.Context, _ database.DBTX, name string) (bool, error) {
	m.checked = append(m.checked, name)
	if m.existsErr != nil {
		return false, m.existsErr
	}

	return m.applied[name], nil
}

func (m *mockTracker) Record(_ context.Context, _ database.DBTX, name string) error {
	if m.recordErr != nil {
		return m.recordErr
	}

	m.staged[name] = true

	return nil
}

func (m *mockTracker) Unrecord(_ context.Context, _ database.DBTX, name string) error {
	if m.unrecordErr != nil {
		return m.unrecordErr
	}

	m.staged[name] = false

	return nil
}

func (m *mockTracker) begin() { m.staged = make(map[string]bool) }

func (m *mockTracker) commit() {
	for name, applied := range m.staged {
		if applied {
			m.applied[name] = true
		} else {
			delete(m.applied, name)
		}
	}
}

func (m *mockTracker) appliedNames(names ...string) []string {
	var out []string

	for _, n := range names {
		if m.applied[n] {
			out = append(out, n)
		}
	}

	return out
}

// mockExec implements StatementExecutor. Scripts containing "FAIL" fail.
type mockExec struct {
	executed []string
}

func (m *mockExec) Exec(_ context.Context, _ database.DBTX, sql string) (int, error) {
	m.executed = append(m.executed, sql)
	if strings.Contains(sql, "FAIL") {
		return 1, fmt.Errorf("%w: statement 2 of 2: relation does not exist", executor.ErrStatementFailed)
	}

	return 2, nil
}

// fakeScripts builds a loadFunc serving "<dir>:<name>" script bodies.
func fakeScripts(scripts map[string]string) loadFunc {
	return func(root, name string, d migration.Direction) (*migration.Unit, error) {
		sql, ok := scripts[d.String()+":"+name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: no such file", migration.ErrUnitLoad, migration.ScriptPath(root, name, d))
		}

		return &migration.Unit{Name: name, Direction: d, SQL: sql}, nil
	}
}

// fakeTx commits the tracker's staged writes only when fn succeeds.
func fakeTx(mt *mockTracker) txFunc {
	return func(_ context.Context, fn func(tx database.DBTX) error) error {
		mt.begin()

		if err := fn(nil); err != nil {
			return err
		}

		mt.commit()

		return nil
	}
}

func newTestRunner(mt *mockTracker, me *mockExec, scripts map[string]string, events *[]Outcome) *Runner {
	r := &Runner{
		tracker:       mt,
		stmts:         me,
		migrationsDir: "migrations",
		load:          fakeScripts(scripts),
		inTx:          fakeTx(mt),
	}

	if events != nil {
		r.onProgress = func(o Outcome) { *events = append(*events, o) }
	}

	return r
}

func statuses(r *Report) []string {
	out := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Unit + "=" + o.Status
	}

	return out
}

var standardScripts = map[string]string{
	"apply:a":  "CREATE TABLE a (id INT);",
	"apply:b":  "CREATE TABLE b (id INT);",
	"apply:c":  "CREATE TABLE c (id INT);",
	"revert:a": "DROP TABLE a;",
	"revert:b": "DROP TABLE b;",
	"revert:c": "DROP TABLE c;",
}

func TestNew_defaults(t *testing.T) {
	t.Parallel()

	r := New(nil, newMockTracker(), &mockExec{})

	require.NotNil(t, r)
	assert.Equal(t, migration.DefaultDir, r.migrationsDir)
	assert.NotNil(t, r.load)
	assert.NotNil(t, r.inTx)
}

func TestNew_withOptions(t *testing.T) {
	t.Parallel()

	called := false
	r := New(nil, newMockTracker(), &mockExec{},
		WithMigrationsDir("/srv/migrations"),
		WithProgressCallback(func(Outcome) { called = true }),
	)

	r.fireProgress(Outcome{})

	assert.Equal(t, "/srv/migrations", r.migrationsDir)
	assert.True(t, called)
}

func TestApply_allPending_appliesInOrder(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=applied", "b=applied", "c=applied"}, statuses(report))
	assert.Equal(t, []string{"a", "b", "c"}, mt.checked)
	assert.Equal(t, []string{standardScripts["apply:a"], standardScripts["apply:b"], standardScripts["apply:c"]}, me.executed)
	assert.Equal(t, []string{"a", "b", "c"}, mt.appliedNames("a", "b", "c"))
	assert.Equal(t, migration.Up, report.Direction)

	for _, o := range report.Outcomes {
		assert.Equal(t, 2, o.Statements)
		assert.NoError(t, o.Err)
	}
}

func TestApply_alreadyApplied_skipsWithoutExecuting(t *testing.T) {
	t.Parallel()

	mt := newMockTracker("a")
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"a"})

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, StatusSkipped, report.Outcomes[0].Status)
	require.ErrorIs(t, report.Outcomes[0].Err, ErrAlreadyApplied)
	assert.Empty(t, me.executed)
	assert.True(t, mt.applied["a"])
}

func TestApply_twice_secondRunSkips(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	_, err := r.Apply(context.Background(), []string{"a"})
	require.NoError(t, err)

	report, err := r.Apply(context.Background(), []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a=skipped"}, statuses(report))
	assert.Len(t, me.executed, 1, "second attempt must not execute SQL")
}

func TestApply_duplicateInList_secondOccurrenceSkipped(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"a", "a"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=applied", "a=skipped"}, statuses(report))
	assert.Len(t, me.executed, 1)
}

func TestApply_middleFails_laterStillAttempted(t *testing.T) {
	t.Parallel()

	scripts := map[string]string{
		"apply:a": "CREATE TABLE a (id INT);",
		"apply:b": "CREATE TABLE b (id INT); FAIL;",
		"apply:c": "CREATE TABLE c (id INT);",
	}
	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, scripts, nil)

	report, err := r.Apply(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=applied", "b=failed", "c=applied"}, statuses(report))
	require.ErrorIs(t, report.Outcomes[1].Err, executor.ErrStatementFailed)
	assert.Contains(t, report.Outcomes[1].Err.Error(), "executing up.sql of b")
	assert.Zero(t, report.Outcomes[1].Statements)
	assert.Equal(t, []string{"a", "c"}, mt.appliedNames("a", "b", "c"))
	assert.Len(t, me.executed, 3)
}

func TestApply_loadError_reportedAndRunContinues(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"missing", "a"})

	require.NoError(t, err)
	assert.Equal(t, []string{"missing=failed", "a=applied"}, statuses(report))
	require.ErrorIs(t, report.Outcomes[0].Err, migration.ErrUnitLoad)
	assert.Equal(t, []string{"a"}, mt.checked, "state is not consulted for an unloadable unit")
}

func TestApply_recordError_rollsBackUnit(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	mt.recordErr = errors.New("duplicate key value violates unique constraint")
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=failed", "b=failed"}, statuses(report))
	require.ErrorIs(t, report.Outcomes[0].Err, ErrStateRecord)
	assert.Empty(t, mt.applied)
}

func TestApply_existsError_reportedAsStateCheck(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	mt.existsErr = errors.New("connection reset by peer")
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{"a"})

	require.NoError(t, err)
	require.ErrorIs(t, report.Outcomes[0].Err, ErrStateCheck)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
	assert.Empty(t, me.executed)
}

func TestApply_txBeginError_reportedPerUnit(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	r := newTestRunner(mt, &mockExec{}, standardScripts, nil)
	r.inTx = func(_ context.Context, _ func(tx database.DBTX) error) error {
		return errors.New("beginning transaction: conn busy")
	}

	report, err := r.Apply(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=failed", "b=failed"}, statuses(report))
}

func TestApply_ensureTableError_abortsBeforeUnits(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	mt.ensureErr = errors.New("create table failed")
	me := &mockExec{}
	var events []Outcome
	r := newTestRunner(mt, me, standardScripts, &events)

	report, err := r.Apply(context.Background(), []string{"a"})

	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "ensuring tracking table")
	assert.Empty(t, events)
	assert.Empty(t, me.executed)
}

func TestApply_emptyList_succeeds(t *testing.T) {
	t.Parallel()

	r := newTestRunner(newMockTracker(), &mockExec{}, standardScripts, nil)

	report, err := r.Apply(context.Background(), []string{})

	require.NoError(t, err)
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, Summary{}, report.Summary())
}

func TestApply_cancelledContext_stopsBeforeNextUnit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	mt := newMockTracker()
	r := newTestRunner(mt, &mockExec{}, standardScripts, nil)
	r.onProgress = func(o Outcome) {
		if o.Unit == "a" && o.Status != StatusStarting {
			cancel()
		}
	}

	report, err := r.Apply(ctx, []string{"a", "b"})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, []string{"a=applied"}, statuses(report))
}

func TestApply_progressEvents_startingThenOutcome(t *testing.T) {
	t.Parallel()

	mt := newMockTracker("b")
	var events []Outcome
	r := newTestRunner(mt, &mockExec{}, standardScripts, &events)

	_, err := r.Apply(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "a", events[0].Unit)
	assert.Equal(t, StatusStarting, events[0].Status)
	assert.Equal(t, StatusApplied, events[1].Status)
	assert.Equal(t, StatusStarting, events[2].Status)
	assert.Equal(t, StatusSkipped, events[3].Status)
}

func TestRevert_applied_unrecords(t *testing.T) {
	t.Parallel()

	mt := newMockTracker("a", "b")
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Revert(context.Background(), []string{"b", "a"})

	require.NoError(t, err)
	assert.Equal(t, migration.Down, report.Direction)
	assert.Equal(t, []string{"b=reverted", "a=reverted"}, statuses(report))
	assert.Equal(t, []string{standardScripts["revert:b"], standardScripts["revert:a"]}, me.executed)
	assert.Empty(t, mt.applied)
}

func TestRevert_notApplied_skipsWithoutExecuting(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	me := &mockExec{}
	r := newTestRunner(mt, me, standardScripts, nil)

	report, err := r.Revert(context.Background(), []string{"a"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=skipped"}, statuses(report))
	require.ErrorIs(t, report.Outcomes[0].Err, ErrNotApplied)
	assert.Empty(t, me.executed)
	assert.Empty(t, mt.applied)
}

func TestRevert_scriptFails_stateKept(t *testing.T) {
	t.Parallel()

	scripts := map[string]string{"revert:a": "DROP TABLE a; FAIL;"}
	mt := newMockTracker("a")
	r := newTestRunner(mt, &mockExec{}, scripts, nil)

	report, err := r.Revert(context.Background(), []string{"a"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a=failed"}, statuses(report))
	assert.True(t, mt.applied["a"])
}

func TestRevert_unrecordError_stateKept(t *testing.T) {
	t.Parallel()

	mt := newMockTracker("a")
	mt.unrecordErr = errors.New("lock timeout")
	r := newTestRunner(mt, &mockExec{}, standardScripts, nil)

	report, err := r.Revert(context.Background(), []string{"a"})

	require.NoError(t, err)
	require.ErrorIs(t, report.Outcomes[0].Err, ErrStateRecord)
	assert.True(t, mt.applied["a"])
}

func TestApplyThenRevert_roundTrip(t *testing.T) {
	t.Parallel()

	mt := newMockTracker()
	r := newTestRunner(mt, &mockExec{}, standardScripts, nil)

	_, err := r.Apply(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.True(t, mt.applied["a"])

	report, err := r.Revert(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=reverted"}, statuses(report))
	assert.False(t, mt.applied["a"])

	report, err = r.Revert(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=skipped"}, statuses(report))
}
