package localstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/localstore"
)

// LocalStoreSuite runs every collection against a fresh in-memory database.
type LocalStoreSuite struct {
	suite.Suite
	kv  *localstore.SQLiteKV
	ctx context.Context
}

func (s *LocalStoreSuite) SetupTest() {
	kv, err := localstore.NewSQLiteKV(":memory:")
	s.Require().NoError(err)
	s.kv = kv
	s.ctx = context.Background()
}

func (s *LocalStoreSuite) TearDownTest() {
	s.kv.Close()
}

func TestLocalStoreSuite(t *testing.T) {
	suite.Run(t, new(LocalStoreSuite))
}

func (s *LocalStoreSuite) TestKV_PutGetDeleteKeys() {
	_, found, err := s.kv.Get(s.ctx, "missing")
	s.NoError(err)
	s.False(found)

	s.NoError(s.kv.Put(s.ctx, "a_1", []byte(`{"x":1}`)))
	s.NoError(s.kv.Put(s.ctx, "a_1", []byte(`{"x":2}`)))
	s.NoError(s.kv.Put(s.ctx, "a_2", []byte(`[]`)))
	s.NoError(s.kv.Put(s.ctx, "ab", []byte(`[]`)))

	v, found, err := s.kv.Get(s.ctx, "a_1")
	s.NoError(err)
	s.True(found)
	s.JSONEq(`{"x":2}`, string(v))

	keys, err := s.kv.Keys(s.ctx, "a_")
	s.NoError(err)
	s.Equal([]string{"a_1", "a_2"}, keys)

	s.NoError(s.kv.Delete(s.ctx, "a_1"))
	s.NoError(s.kv.Delete(s.ctx, "a_1"))
	_, found, _ = s.kv.Get(s.ctx, "a_1")
	s.False(found)
	s.NoError(s.kv.Ping(s.ctx))
}

func (s *LocalStoreSuite) TestFinance_RoundTripPreservesCollection() {
	fc := localstore.NewFinanceCollection(s.kv, zap.NewNop())
	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	want := []domain.FinancialTransaction{
		{ID: "t1", Type: domain.Outflow, Amount: 5000, Currency: "BRL", Description: "Mercado", Category: "Alimentação",
			Date: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC), CreatedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{ID: "t2", Type: domain.Inflow, Amount: 20000, Currency: "BRL", Description: "Salário",
			Date: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), CreatedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
			Recurring: &domain.Recurrence{Interval: domain.RecurMonthly, Until: &until}},
	}
	s.Require().NoError(fc.ReplaceAll(s.ctx, "u1", want))

	s.Equal(want, fc.All(s.ctx, "u1"))
}

func (s *LocalStoreSuite) TestFinance_ListFiltersInclusiveAndSortsNewestFirst() {
	fc := localstore.NewFinanceCollection(s.kv, zap.NewNop())
	jan := domain.MonthRange(2026, time.January, time.UTC)
	for _, d := range []time.Time{
		jan.From,
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		jan.To,
		jan.To.Add(time.Nanosecond),
		jan.From.Add(-time.Nanosecond),
	} {
		tx := &domain.FinancialTransaction{Type: domain.Outflow, Amount: 1, Date: d}
		s.Require().NoError(fc.AddTransaction(s.ctx, "u1", tx))
		s.NotEmpty(tx.ID)
	}

	got, err := fc.ListTransactions(s.ctx, "u1", jan)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(jan.To, got[0].Date)
	s.Equal(jan.From, got[2].Date)
}

func (s *LocalStoreSuite) TestFinance_UpdateAndDelete() {
	fc := localstore.NewFinanceCollection(s.kv, zap.NewNop())
	tx := &domain.FinancialTransaction{Type: domain.Outflow, Amount: 100, Date: time.Now()}
	s.Require().NoError(fc.AddTransaction(s.ctx, "u1", tx))

	amount := int64(250)
	s.NoError(fc.UpdateTransaction(s.ctx, "u1", tx.ID, domain.TransactionPatch{Amount: &amount}))
	s.NoError(fc.UpdateTransaction(s.ctx, "u1", "unknown", domain.TransactionPatch{Amount: &amount}))
	all := fc.All(s.ctx, "u1")
	s.Require().Len(all, 1)
	s.EqualValues(250, all[0].Amount)

	s.NoError(fc.DeleteTransaction(s.ctx, "u1", "unknown"))
	s.Len(fc.All(s.ctx, "u1"), 1)
	s.NoError(fc.DeleteTransaction(s.ctx, "u1", tx.ID))
	s.Empty(fc.All(s.ctx, "u1"))

	ids, err := fc.UserIDs(s.ctx)
	s.NoError(err)
	s.Equal([]string{"u1"}, ids)
}

func (s *LocalStoreSuite) TestFinance_CorruptDocumentIsEmpty() {
	fc := localstore.NewFinanceCollection(s.kv, zap.NewNop())
	s.Require().NoError(s.kv.Put(s.ctx, localstore.FinancePrefix+"u1", []byte("{not json")))

	got, err := fc.ListTransactions(s.ctx, "u1", domain.YearRange(2026, time.UTC))
	s.NoError(err)
	s.Empty(got)

	s.NoError(fc.AddTransaction(s.ctx, "u1", &domain.FinancialTransaction{Type: domain.Inflow, Amount: 1, Date: time.Now()}))
	s.Len(fc.All(s.ctx, "u1"), 1)
}

// flakyKV fails the next failGets reads and delegates everything else.
type flakyKV struct {
	*localstore.SQLiteKV
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, false, errors.New("database is locked")
	}
	return f.SQLiteKV.Get(ctx, key)
}

func (s *LocalStoreSuite) TestFinance_ReadFailureNeverOverwritesCollection() {
	kv := &flakyKV{SQLiteKV: s.kv}
	fc := localstore.NewFinanceCollection(kv, zap.NewNop())
	for i := 0; i < 3; i++ {
		s.Require().NoError(fc.AddTransaction(s.ctx, "u1", &domain.FinancialTransaction{Type: domain.Outflow, Amount: 1, Date: time.Now()}))
	}
	first := fc.All(s.ctx, "u1")[0].ID
	amount := int64(9)

	kv.failGets = 1
	s.Error(fc.AddTransaction(s.ctx, "u1", &domain.FinancialTransaction{Type: domain.Inflow, Amount: 1, Date: time.Now()}))
	kv.failGets = 1
	s.Error(fc.UpdateTransaction(s.ctx, "u1", first, domain.TransactionPatch{Amount: &amount}))
	kv.failGets = 1
	s.Error(fc.DeleteTransaction(s.ctx, "u1", first))

	all := fc.All(s.ctx, "u1")
	s.Len(all, 3)
	s.EqualValues(1, all[0].Amount)

	kv.failGets = 1
	got, err := fc.ListTransactions(s.ctx, "u1", domain.AllTime)
	s.NoError(err)
	s.Empty(got)
}

func (s *LocalStoreSuite) TestUsers_ReadFailureIsReturned() {
	kv := &flakyKV{SQLiteKV: s.kv}
	ud := localstore.NewUserDirectory(kv, zap.NewNop())
	s.Require().NoError(ud.Insert(s.ctx, domain.StoredUser{User: domain.User{ID: "1", Email: "ana@example.com"}}))

	kv.failGets = 1
	s.Error(ud.Insert(s.ctx, domain.StoredUser{User: domain.User{ID: "2", Email: "bia@example.com"}}))
	kv.failGets = 1
	_, err := ud.FindByEmail(s.ctx, "ana@example.com")
	s.Error(err)

	ids, err := ud.IDs(s.ctx)
	s.NoError(err)
	s.Equal([]string{"1"}, ids)
}

func (s *LocalStoreSuite) TestTasks_RoundTrip() {
	tc := localstore.NewTaskCollection(s.kv, zap.NewNop())
	s.Empty(tc.Load(s.ctx, "u1"))

	done := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	est := 30
	want := []domain.Task{
		{ID: "a", Title: "Pagar contas", Priority: domain.PriorityHigh, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Subtasks: []domain.Subtask{{ID: "s1", Title: "Luz", EstimatedMinutes: &est}}},
		{ID: "b", Title: "Correr", Priority: domain.PriorityLow, Completed: true, CompletedAt: &done,
			Feeling: domain.FeelingDelighted, CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Subtasks: []domain.Subtask{}},
	}
	s.Require().NoError(tc.Save(s.ctx, "u1", want))
	s.Equal(want, tc.Load(s.ctx, "u1"))
}

func (s *LocalStoreSuite) TestSettings_DefaultsAndSave() {
	sc := localstore.NewSettingsCollection(s.kv, zap.NewNop())
	s.Equal(domain.Settings{SoundEnabled: true}, sc.Load(s.ctx, "u1"))

	chat := int64(42)
	want := domain.Settings{SoundEnabled: false, NotificationsEnabled: true, TelegramChatID: &chat}
	s.Require().NoError(sc.Save(s.ctx, "u1", want))
	s.Equal(want, sc.Load(s.ctx, "u1"))
}

func (s *LocalStoreSuite) TestUsers_DuplicateEmailRejected() {
	ud := localstore.NewUserDirectory(s.kv, zap.NewNop())
	u := domain.StoredUser{User: domain.User{ID: "1", Name: "Ana", Email: "ana@example.com"}, PasswordHash: "x"}
	s.Require().NoError(ud.Insert(s.ctx, u))

	u.ID = "2"
	u.Email = "ANA@example.com"
	var conflict *domain.ErrConflict
	s.ErrorAs(ud.Insert(s.ctx, u), &conflict)

	found, err := ud.FindByEmail(s.ctx, "Ana@Example.com")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal("1", found.ID)

	missing, err := ud.FindByEmail(s.ctx, "bob@example.com")
	s.NoError(err)
	s.Nil(missing)

	ids, err := ud.IDs(s.ctx)
	s.NoError(err)
	s.Equal([]string{"1"}, ids)
}

func (s *LocalStoreSuite) TestSessions_SaveLoadDelete() {
	sr := localstore.NewSessionRecords(s.kv, zap.NewNop())
	s.Nil(sr.Load(s.ctx, "u1"))

	rec := domain.SessionRecord{User: domain.User{ID: "u1", Email: "a@b.c"}, StartedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.Require().NoError(sr.Save(s.ctx, rec))
	s.Equal(&rec, sr.Load(s.ctx, "u1"))

	s.Require().NoError(sr.Delete(s.ctx, "u1"))
	s.Nil(sr.Load(s.ctx, "u1"))
}
