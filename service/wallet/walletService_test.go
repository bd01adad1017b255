// service/wallet/wallet_service_test.go
package wallet

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"cafeorder/model"
	"cafeorder/repository/paygate"
	walletrepo "cafeorder/repository/wallet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	balance float64
	coins   int64

	getOrCreateFn   func(ctx context.Context, userID int64) (*model.Wallet, error)
	debitBalanceFn  func(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (float64, bool, error)
	debitCoinsFn    func(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (int64, bool, error)
	insertTopUpFn   func(ctx context.Context, userID int64, amount float64, method string) (int64, error)
	getTopUpFn      func(ctx context.Context, topUpID int64) (*model.TopUp, error)
	markTopUpFn     func(ctx context.Context, tx *sql.Tx, topUpID int64) (bool, error)
	setTopUpSessFn  func(ctx context.Context, topUpID int64, sessionID, checkoutURL string) error

	credited []float64
	inserted []model.Transaction
}

var _ walletrepo.Repo = (*mockRepo)(nil)

func (m *mockRepo) GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, userID)
	}
	return &model.Wallet{UserID: userID, Balance: m.balance, Coins: m.coins, UpdatedAt: time.Now()}, nil
}

func (m *mockRepo) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return &model.Wallet{UserID: userID, Balance: m.balance, Coins: m.coins, UpdatedAt: time.Now()}, nil
}

func (m *mockRepo) CreditBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (float64, error) {
	m.credited = append(m.credited, amount)
	m.balance += amount
	return m.balance, nil
}

func (m *mockRepo) DebitBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (float64, bool, error) {
	if m.debitBalanceFn != nil {
		return m.debitBalanceFn(ctx, tx, userID, amount)
	}
	if m.balance < amount {
		return 0, false, nil
	}
	m.balance -= amount
	return m.balance, true, nil
}

func (m *mockRepo) CreditCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (int64, error) {
	m.coins += coins
	return m.coins, nil
}

func (m *mockRepo) DebitCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (int64, bool, error) {
	if m.debitCoinsFn != nil {
		return m.debitCoinsFn(ctx, tx, userID, coins)
	}
	if m.coins < coins {
		return 0, false, nil
	}
	m.coins -= coins
	return m.coins, true, nil
}

func (m *mockRepo) InsertTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction) (int64, error) {
	m.inserted = append(m.inserted, *t)
	return int64(len(m.inserted)), nil
}

func (m *mockRepo) ListTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	return m.inserted, nil
}

func (m *mockRepo) InsertTopUp(ctx context.Context, userID int64, amount float64, method string) (int64, error) {
	if m.insertTopUpFn != nil {
		return m.insertTopUpFn(ctx, userID, amount, method)
	}
	return 7, nil
}

func (m *mockRepo) SetTopUpSession(ctx context.Context, topUpID int64, sessionID, checkoutURL string) error {
	if m.setTopUpSessFn != nil {
		return m.setTopUpSessFn(ctx, topUpID, sessionID, checkoutURL)
	}
	return nil
}

func (m *mockRepo) GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	if m.getTopUpFn != nil {
		return m.getTopUpFn(ctx, topUpID)
	}
	return nil, sql.ErrNoRows
}

func (m *mockRepo) MarkTopUpCompleted(ctx context.Context, tx *sql.Tx, topUpID int64) (bool, error) {
	if m.markTopUpFn != nil {
		return m.markTopUpFn(ctx, tx, topUpID)
	}
	return true, nil
}

func (m *mockRepo) ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error) {
	return nil, nil
}

type gateMock struct {
	createFn func(ctx context.Context, req paygate.CheckoutReq) (*paygate.CheckoutSession, error)
	statusFn func(ctx context.Context, sessionID string) (*paygate.SessionStatus, error)
}

var _ paygate.Repo = (*gateMock)(nil)

func (g *gateMock) CreateCheckout(ctx context.Context, req paygate.CheckoutReq) (*paygate.CheckoutSession, error) {
	if g.createFn != nil {
		return g.createFn(ctx, req)
	}
	return &paygate.CheckoutSession{SessionID: "cs_test_1", CheckoutURL: "https://checkout.test/cs_test_1"}, nil
}

func (g *gateMock) GetSessionStatus(ctx context.Context, sessionID string) (*paygate.SessionStatus, error) {
	if g.statusFn != nil {
		return g.statusFn(ctx, sessionID)
	}
	return &paygate.SessionStatus{}, nil
}

func (g *gateMock) VerifySignature(sigHeader string, rawBody []byte) error { return nil }

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- tests ---

func TestAddBalance_InvalidAmount(t *testing.T) {
	db, _ := newMockDB(t)
	s := New(db, &mockRepo{}, &gateMock{}, "https://ok", "https://no")

	_, err := s.AddBalance(context.Background(), 1, 0, nil, "x", model.TxTopup)
	require.Error(t, err)
	require.Equal(t, ErrInvalidAmount, Code(err))

	_, err = s.AddBalance(context.Background(), 1, -5, nil, "x", model.TxTopup)
	require.Error(t, err)
	require.Equal(t, ErrInvalidAmount, Code(err))
}

func TestAddBalance_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	m := &mockRepo{balance: 100}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	w, err := s.AddBalance(context.Background(), 1, 50, nil, "manual credit", model.TxTopup)
	require.NoError(t, err)
	require.Equal(t, 150.0, w.Balance)
	require.Len(t, m.inserted, 1)
	require.Equal(t, model.TxTopup, m.inserted[0].Type)
	require.Equal(t, 50.0, m.inserted[0].Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalance_Insufficient(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	m := &mockRepo{balance: 30}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	_, err := s.DeductBalance(context.Background(), 1, 100, nil, "order")
	require.Error(t, err)
	require.Equal(t, ErrInsufficientFunds, Code(err))
	require.Empty(t, m.inserted)
	require.Equal(t, 30.0, m.balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalance_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	m := &mockRepo{balance: 500}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	w, err := s.DeductBalance(context.Background(), 1, 240, nil, "order #3")
	require.NoError(t, err)
	require.Equal(t, 260.0, w.Balance)
	require.Len(t, m.inserted, 1)
	require.Equal(t, -240.0, m.inserted[0].Amount)
	require.Equal(t, model.TxOrder, m.inserted[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUseCoins_Insufficient(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	m := &mockRepo{coins: 10}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	_, err := s.UseCoins(context.Background(), 1, 50, nil, "redeem")
	require.Error(t, err)
	require.Equal(t, ErrInsufficientCoins, Code(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTopUp_ReferencePrefix(t *testing.T) {
	db, _ := newMockDB(t)

	var gotRef string
	gm := &gateMock{
		createFn: func(ctx context.Context, req paygate.CheckoutReq) (*paygate.CheckoutSession, error) {
			gotRef = req.ReferenceID
			return &paygate.CheckoutSession{SessionID: "cs_test_9", CheckoutURL: "https://checkout.test/cs_test_9"}, nil
		},
	}
	sess := "cs_test_9"
	url := "https://checkout.test/cs_test_9"
	m := &mockRepo{
		getTopUpFn: func(ctx context.Context, topUpID int64) (*model.TopUp, error) {
			return &model.TopUp{ID: topUpID, UserID: 1, Amount: 100, Status: model.TopupPending, SessionID: &sess, CheckoutURL: &url}, nil
		},
	}
	s := New(db, m, gm, "https://ok", "https://no")

	tu, err := s.CreateTopUp(context.Background(), 1, 100, "card")
	require.NoError(t, err)
	require.Equal(t, "top_7", gotRef)
	require.NotNil(t, tu.SessionID)
	require.Equal(t, "cs_test_9", *tu.SessionID)
}

func TestCreateTopUp_GatewayFailure(t *testing.T) {
	db, _ := newMockDB(t)
	gm := &gateMock{
		createFn: func(ctx context.Context, req paygate.CheckoutReq) (*paygate.CheckoutSession, error) {
			return nil, &paygate.GatewayError{Status: 502, Body: "upstream down"}
		},
	}
	m := &mockRepo{}
	s := New(db, m, gm, "https://ok", "https://no")

	_, err := s.CreateTopUp(context.Background(), 1, 100, "card")
	require.Error(t, err)
	var ge *paygate.GatewayError
	require.ErrorAs(t, err, &ge)
	// Nothing was credited.
	require.Empty(t, m.credited)
}

func TestCompleteTopUp_CreditsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	status := model.TopupPending
	m := &mockRepo{balance: 50}
	m.getTopUpFn = func(ctx context.Context, topUpID int64) (*model.TopUp, error) {
		return &model.TopUp{ID: topUpID, UserID: 1, Amount: 100, Status: status}, nil
	}
	m.markTopUpFn = func(ctx context.Context, tx *sql.Tx, topUpID int64) (bool, error) {
		status = model.TopupCompleted
		return true, nil
	}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	tu, err := s.CompleteTopUp(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, model.TopupCompleted, tu.Status)
	require.Equal(t, []float64{100}, m.credited)
	require.Len(t, m.inserted, 1)
	require.Equal(t, model.TxTopup, m.inserted[0].Type)
	require.Equal(t, 100.0, m.inserted[0].Amount)
	require.NotNil(t, m.inserted[0].ReferenceID)
	require.Equal(t, "top_9", *m.inserted[0].ReferenceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTopUp_AlreadyCompleted(t *testing.T) {
	db, mock := newMockDB(t)

	m := &mockRepo{}
	m.getTopUpFn = func(ctx context.Context, topUpID int64) (*model.TopUp, error) {
		return &model.TopUp{ID: topUpID, UserID: 1, Amount: 100, Status: model.TopupCompleted}, nil
	}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	// A replayed webhook delivery: no transaction is even opened.
	tu, err := s.CompleteTopUp(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, model.TopupCompleted, tu.Status)
	require.Empty(t, m.credited)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteTopUp_LostRace(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	m := &mockRepo{}
	m.getTopUpFn = func(ctx context.Context, topUpID int64) (*model.TopUp, error) {
		return &model.TopUp{ID: topUpID, UserID: 1, Amount: 100, Status: model.TopupPending}, nil
	}
	m.markTopUpFn = func(ctx context.Context, tx *sql.Tx, topUpID int64) (bool, error) {
		// Another delivery flipped the row between read and update.
		return false, nil
	}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")

	_, err := s.CompleteTopUp(context.Background(), 9)
	require.NoError(t, err)
	require.Empty(t, m.credited)
	require.Empty(t, m.inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceNeverNegative(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 200; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	m := &mockRepo{}
	s := New(db, m, &gateMock{}, "https://ok", "https://no")
	ctx := context.Background()

	rng := rand.New(rand.NewSource(1))
	var want float64
	for i := 0; i < 200; i++ {
		amount := float64(rng.Intn(100) + 1)
		switch rng.Intn(3) {
		case 0:
			_, err := s.AddBalance(ctx, 1, amount, nil, "credit", model.TxTopup)
			require.NoError(t, err)
			want += amount
		case 1:
			_, err := s.DeductBalance(ctx, 1, amount, nil, "debit")
			if want >= amount {
				require.NoError(t, err)
				want -= amount
			} else {
				require.Equal(t, ErrInsufficientFunds, Code(err))
			}
		case 2:
			coins := int64(rng.Intn(50) + 1)
			_, err := s.UseCoins(ctx, 1, coins, nil, "coins")
			if err != nil {
				require.Equal(t, ErrInsufficientCoins, Code(err))
			}
		}
		require.GreaterOrEqual(t, m.balance, 0.0)
		require.GreaterOrEqual(t, m.coins, int64(0))
		require.Equal(t, want, m.balance)
	}
}

func TestCompleteTopUp_NotFound(t *testing.T) {
	db, _ := newMockDB(t)
	s := New(db, &mockRepo{}, &gateMock{}, "https://ok", "https://no")

	_, err := s.CompleteTopUp(context.Background(), 404)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}
