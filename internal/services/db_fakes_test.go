package services

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/kindred-wellness/kindred/internal/config"
	"github.com/kindred-wellness/kindred/internal/models"
	"github.com/kindred-wellness/kindred/internal/rewards"
)

// fakeDB implements DB with overridable behavior per test.
type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	BeginFunc    func(ctx context.Context) (Tx, error)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{scanFunc: func(dest ...any) error {
			return fmt.Errorf("unexpected QueryRow: %s", sql)
		}}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, fmt.Errorf("unexpected Query: %s", sql)
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return nil, fmt.Errorf("unexpected Exec: %s", sql)
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc == nil {
		return nil, fmt.Errorf("unexpected Begin")
	}
	return f.BeginFunc(ctx)
}

// fakeTx implements Tx the same way.
type fakeTx struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{scanFunc: func(dest ...any) error {
			return fmt.Errorf("unexpected tx QueryRow: %s", sql)
		}}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return nil, fmt.Errorf("unexpected tx Query: %s", sql)
	}
	return f.QueryFunc(ctx, sql, args...)
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return nil, fmt.Errorf("unexpected tx Exec: %s", sql)
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.CommitFunc == nil {
		return nil
	}
	return f.CommitFunc(ctx)
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.RollbackFunc == nil {
		return nil
	}
	return f.RollbackFunc(ctx)
}

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// rowFromValues builds a Row that scans the given values positionally. A nil
// value leaves the destination untouched.
func rowFromValues(values ...any) Row {
	return fakeRow{scanFunc: func(dest ...any) error {
		return assignValues(dest, values)
	}}
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assignValues(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error { return r.err }

func assignValues(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		sv := reflect.ValueOf(v)
		elem := dv.Elem()
		switch {
		case sv.Type().AssignableTo(elem.Type()):
			elem.Set(sv)
		case sv.Type().ConvertibleTo(elem.Type()):
			elem.Set(sv.Convert(elem.Type()))
		default:
			return fmt.Errorf("scan: cannot assign %T to %s", v, elem.Type())
		}
	}
	return nil
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 { return t.rowsAffected }

// stubFriendshipStore implements FriendshipStoreInterface with per-call
// overrides.
type stubFriendshipStore struct {
	AddEdgePairFunc   func(ctx context.Context, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error
	AddEdgePairInFunc func(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error
	RemoveFunc        func(ctx context.Context, a, b uuid.UUID) error
	ExistsFunc        func(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListFunc          func(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error)
}

func (s *stubFriendshipStore) AddEdgePair(ctx context.Context, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
	if s.AddEdgePairFunc == nil {
		return fmt.Errorf("unexpected AddEdgePair")
	}
	return s.AddEdgePairFunc(ctx, a, b, snapA, snapB, origin)
}

func (s *stubFriendshipStore) AddEdgePairIn(ctx context.Context, q DBConn, a, b uuid.UUID, snapA, snapB EdgeSnapshot, origin models.FriendshipOrigin) error {
	if s.AddEdgePairInFunc == nil {
		return fmt.Errorf("unexpected AddEdgePairIn")
	}
	return s.AddEdgePairInFunc(ctx, q, a, b, snapA, snapB, origin)
}

func (s *stubFriendshipStore) RemoveEdgePair(ctx context.Context, a, b uuid.UUID) error {
	if s.RemoveFunc == nil {
		return fmt.Errorf("unexpected RemoveEdgePair")
	}
	return s.RemoveFunc(ctx, a, b)
}

func (s *stubFriendshipStore) Exists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if s.ExistsFunc == nil {
		return false, nil
	}
	return s.ExistsFunc(ctx, a, b)
}

func (s *stubFriendshipStore) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendshipEdge, error) {
	if s.ListFunc == nil {
		return []models.FriendshipEdge{}, nil
	}
	return s.ListFunc(ctx, userID)
}

type stubUserLookup struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func (s *stubUserLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.GetByIDFunc == nil {
		return nil, ErrUserNotFound
	}
	return s.GetByIDFunc(ctx, id)
}

// userMap is a stubUserLookup over a fixed set of users.
func userMap(users ...*models.User) *stubUserLookup {
	byID := make(map[uuid.UUID]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &stubUserLookup{GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
		u, ok := byID[id]
		if !ok {
			return nil, ErrUserNotFound
		}
		return u, nil
	}}
}

// stubDispatcher records awards. Err makes every dispatch fail.
type stubDispatcher struct {
	Awards []dispatchedAward
	Err    error
}

type dispatchedAward struct {
	UserID uuid.UUID
	Source rewards.SourceTag
}

func (s *stubDispatcher) AwardXP(ctx context.Context, userID uuid.UUID, source rewards.SourceTag) (*rewards.Award, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.Awards = append(s.Awards, dispatchedAward{UserID: userID, Source: source})
	return &rewards.Award{Success: true, AmountAwarded: 10}, nil
}

func defaultClassifier() *UserClassifier {
	return NewUserClassifier(config.ClassifierConfig{})
}
