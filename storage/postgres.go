// storage/postgres.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/almatkai/woolet-sub001/finance"
	"github.com/almatkai/woolet-sub001/model"
)

// Custom errors for the storage layer.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverpayment       = errors.New("payment exceeds outstanding share")
)

// Store defines the interface for database operations.
type Store interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, acc model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ExecuteTransfer(ctx context.Context, t *model.Transfer) error
	RecordExpense(ctx context.Context, e *model.Expense) error

	CreateMortgage(ctx context.Context, m *model.Mortgage) error
	GetMortgage(ctx context.Context, id uuid.UUID) (*model.Mortgage, error)
	CreateDeposit(ctx context.Context, d *model.Deposit) error
	GetDeposit(ctx context.Context, id uuid.UUID) (*model.Deposit, error)

	CreateSplit(ctx context.Context, s *model.Split) error
	GetSplit(ctx context.Context, id uuid.UUID) (*model.Split, error)
	RecordSplitPayment(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (*model.SplitPayment, error)
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore, connects to the database, and initializes the schema.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	var pool *pgxpool.Pool
	var err error

	// Retry connecting to the database for a few seconds
	for i := 0; i < 5; i++ {
		pool, err = pgxpool.New(ctx, connString)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not connect to database after retries: %w", err)
	}

	store := &PostgresStore{db: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}

	return store, nil
}

// Close releases every pooled connection.
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// initSchema creates the necessary tables if they don't exist.
// Amounts use NUMERIC(20, 8) so that every currency scale round-trips.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS accounts (
        account_id BIGINT PRIMARY KEY,
        currency CHAR(3) NOT NULL,
        balance NUMERIC(20, 8) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS transactions (
        transaction_id UUID PRIMARY KEY,
        kind TEXT NOT NULL,
        account_id BIGINT NOT NULL REFERENCES accounts (account_id),
        counterparty_account_id BIGINT REFERENCES accounts (account_id),
        currency CHAR(3) NOT NULL,
        amount NUMERIC(20, 8) NOT NULL,
        fee NUMERIC(20, 8) NOT NULL DEFAULT 0,
        cashback NUMERIC(20, 8) NOT NULL DEFAULT 0,
        credited_amount NUMERIC(20, 8),
        credited_currency CHAR(3),
        exchange_rate NUMERIC(24, 10),
        category TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS mortgages (
        mortgage_id UUID PRIMARY KEY,
        account_id BIGINT REFERENCES accounts (account_id),
        currency CHAR(3) NOT NULL,
        principal NUMERIC(20, 8) NOT NULL,
        down_payment NUMERIC(20, 8) NOT NULL,
        annual_rate_percent NUMERIC(9, 4) NOT NULL,
        term_months INT NOT NULL,
        start_date DATE NOT NULL,
        monthly_payment NUMERIC(20, 8) NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS mortgage_payments (
        mortgage_id UUID NOT NULL REFERENCES mortgages (mortgage_id) ON DELETE CASCADE,
        period INT NOT NULL,
        due_date DATE NOT NULL,
        payment NUMERIC(20, 8) NOT NULL,
        principal NUMERIC(20, 8) NOT NULL,
        interest NUMERIC(20, 8) NOT NULL,
        remaining_balance NUMERIC(20, 8) NOT NULL,
        PRIMARY KEY (mortgage_id, period)
    );

    CREATE TABLE IF NOT EXISTS deposits (
        deposit_id UUID PRIMARY KEY,
        currency CHAR(3) NOT NULL,
        principal NUMERIC(20, 8) NOT NULL,
        annual_rate_percent NUMERIC(9, 4) NOT NULL,
        compounding TEXT NOT NULL,
        start_date DATE NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS transaction_splits (
        split_id UUID PRIMARY KEY,
        payer_account_id BIGINT REFERENCES accounts (account_id),
        description TEXT NOT NULL DEFAULT '',
        currency CHAR(3) NOT NULL,
        total_amount NUMERIC(20, 8) NOT NULL,
        mode TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS split_participants (
        participant_id UUID PRIMARY KEY,
        split_id UUID NOT NULL REFERENCES transaction_splits (split_id) ON DELETE CASCADE,
        position INT NOT NULL,
        participant_ref TEXT NOT NULL,
        share_amount NUMERIC(20, 8) NOT NULL,
        paid_amount NUMERIC(20, 8) NOT NULL DEFAULT 0,
        UNIQUE (split_id, participant_ref)
    );

    CREATE TABLE IF NOT EXISTS split_payments (
        payment_id UUID PRIMARY KEY,
        participant_id UUID NOT NULL REFERENCES split_participants (participant_id) ON DELETE CASCADE,
        amount NUMERIC(20, 8) NOT NULL,
        paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`
	_, err := s.db.Exec(ctx, query)
	return err
}

// CreateAccount creates a new account in the database.
// CreateAccount function is idempotent: if an account with the same ID already exists, it does nothing and returns nil.
func (s *PostgresStore) CreateAccount(ctx context.Context, acc model.Account) error {
	query := `
		INSERT INTO accounts (account_id, currency, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING`
	_, err := s.db.Exec(ctx, query, acc.AccountID, acc.Currency, acc.Balance)
	return err
}

// GetAccount retrieves a single account by its ID.
func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	acc := &model.Account{AccountID: id}
	query := "SELECT currency, balance FROM accounts WHERE account_id = $1"
	err := s.db.QueryRow(ctx, query, id).Scan(&acc.Currency, &acc.Balance)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	acc.Balance = acc.Balance.Round(finance.Scale(acc.Currency))
	return acc, nil
}

// lockAccounts selects the given accounts FOR UPDATE. Rows are locked in a
// consistent order (by ID) to prevent deadlocks.
func lockAccounts(ctx context.Context, tx pgx.Tx, ids ...int64) (map[int64]model.Account, error) {
	query := `
        SELECT account_id, currency, balance FROM accounts
        WHERE account_id = ANY($1)
        ORDER BY account_id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("could not query accounts for update: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]model.Account, len(ids))
	for rows.Next() {
		var acc model.Account
		if err := rows.Scan(&acc.AccountID, &acc.Currency, &acc.Balance); err != nil {
			return nil, fmt.Errorf("could not scan account row: %w", err)
		}
		found[acc.AccountID] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read account rows: %w", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, ErrNotFound
		}
	}
	return found, nil
}

func checkCurrency(acc model.Account, m finance.Money) error {
	if acc.Currency != m.Currency() {
		return &finance.CurrencyMismatchError{Expected: acc.Currency, Actual: m.Currency()}
	}
	return nil
}

// ExecuteTransfer performs a financial transfer between two accounts within a database transaction.
// The source is debited TotalDeducted and the destination credited AmountCredited. The balance
// check happens under the row lock so concurrent transfers cannot overdraw an account.
func (s *PostgresStore) ExecuteTransfer(ctx context.Context, t *model.Transfer) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction has been committed.

	accounts, err := lockAccounts(ctx, tx, t.SourceAccountID, t.DestinationAccountID)
	if err != nil {
		return err
	}
	source, dest := accounts[t.SourceAccountID], accounts[t.DestinationAccountID]
	if err := checkCurrency(source, t.TotalDeducted); err != nil {
		return err
	}
	if err := checkCurrency(dest, t.AmountCredited); err != nil {
		return err
	}

	if source.Balance.LessThan(t.TotalDeducted.Amount()) {
		return ErrInsufficientFunds
	}

	// Debit source account
	updateQuery := "UPDATE accounts SET balance = balance - $1 WHERE account_id = $2"
	if _, err := tx.Exec(ctx, updateQuery, t.TotalDeducted.Amount(), t.SourceAccountID); err != nil {
		return fmt.Errorf("could not debit source account: %w", err)
	}

	// Credit destination account
	updateQuery = "UPDATE accounts SET balance = balance + $1 WHERE account_id = $2"
	if _, err := tx.Exec(ctx, updateQuery, t.AmountCredited.Amount(), t.DestinationAccountID); err != nil {
		return fmt.Errorf("could not credit destination account: %w", err)
	}

	t.TransactionID = uuid.New()
	insertQuery := `
		INSERT INTO transactions (transaction_id, kind, account_id, counterparty_account_id, currency,
			amount, fee, credited_amount, credited_currency, exchange_rate, description)
		VALUES ($1, 'transfer', $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err = tx.QueryRow(ctx, insertQuery,
		t.TransactionID, t.SourceAccountID, t.DestinationAccountID, t.Amount.Currency(),
		t.Amount.Amount(), t.Fee.Amount(), t.AmountCredited.Amount(), t.AmountCredited.Currency(),
		t.ExchangeRate, t.Description,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record transfer: %w", err)
	}

	return tx.Commit(ctx)
}

// RecordExpense debits an expense and credits its cashback to the same
// account in one transaction.
func (s *PostgresStore) RecordExpense(ctx context.Context, e *model.Expense) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	accounts, err := lockAccounts(ctx, tx, e.AccountID)
	if err != nil {
		return err
	}
	acc := accounts[e.AccountID]
	if err := checkCurrency(acc, e.Amount); err != nil {
		return err
	}
	if err := checkCurrency(acc, e.Cashback); err != nil {
		return err
	}
	if acc.Balance.LessThan(e.Amount.Amount()) {
		return ErrInsufficientFunds
	}

	updateQuery := "UPDATE accounts SET balance = balance - $1 + $2 WHERE account_id = $3"
	if _, err := tx.Exec(ctx, updateQuery, e.Amount.Amount(), e.Cashback.Amount(), e.AccountID); err != nil {
		return fmt.Errorf("could not update account balance: %w", err)
	}

	e.TransactionID = uuid.New()
	insertQuery := `
		INSERT INTO transactions (transaction_id, kind, account_id, currency, amount, cashback, category, description)
		VALUES ($1, 'expense', $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err = tx.QueryRow(ctx, insertQuery,
		e.TransactionID, e.AccountID, e.Amount.Currency(), e.Amount.Amount(), e.Cashback.Amount(),
		e.Category, e.Description,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record expense: %w", err)
	}

	return tx.Commit(ctx)
}

// nullableAccount maps the zero account ID to SQL NULL.
func nullableAccount(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func accountValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

// mapWriteError turns a dangling account reference into ErrNotFound and a
// value too wide for its numeric column into an InvalidInputError.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23503":
		return ErrNotFound
	case "22003":
		return &finance.InvalidInputError{Field: "amount", Reason: "value does not fit the stored precision"}
	}
	return err
}

func toDate(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// money rebuilds a stored amount at its currency scale.
func money(amount decimal.Decimal, currency string) (finance.Money, error) {
	return finance.NewMoney(amount.Round(finance.Scale(currency)), currency)
}

// CreateMortgage stores the mortgage terms and its full payment schedule.
func (s *PostgresStore) CreateMortgage(ctx context.Context, m *model.Mortgage) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m.MortgageID = uuid.New()
	query := `
		INSERT INTO mortgages (mortgage_id, account_id, currency, principal, down_payment,
			annual_rate_percent, term_months, start_date, monthly_payment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
	err = tx.QueryRow(ctx, query,
		m.MortgageID, nullableAccount(m.AccountID), m.Principal.Currency(), m.Principal.Amount(),
		m.DownPayment.Amount(), m.AnnualRatePercent, m.TermMonths, toDate(m.StartDate),
		m.MonthlyPayment.Amount(),
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not insert mortgage: %w", mapWriteError(err))
	}

	batch := &pgx.Batch{}
	for _, e := range m.Schedule {
		batch.Queue(`
			INSERT INTO mortgage_payments (mortgage_id, period, due_date, payment, principal, interest, remaining_balance)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.MortgageID, e.Period, toDate(e.DueDate), e.Payment.Amount(), e.Principal.Amount(),
			e.Interest.Amount(), e.RemainingBalance.Amount())
	}
	br := tx.SendBatch(ctx, batch)
	for range m.Schedule {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("could not insert mortgage schedule: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("could not insert mortgage schedule: %w", err)
	}

	return tx.Commit(ctx)
}

// GetMortgage retrieves a mortgage and its schedule ordered by period.
func (s *PostgresStore) GetMortgage(ctx context.Context, id uuid.UUID) (*model.Mortgage, error) {
	var (
		accountID                *int64
		currency                 string
		principal, down, monthly decimal.Decimal
		startDate                time.Time
	)
	m := &model.Mortgage{MortgageID: id}
	query := `
		SELECT account_id, currency, principal, down_payment, annual_rate_percent, term_months,
			start_date, monthly_payment, created_at
		FROM mortgages WHERE mortgage_id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&accountID, &currency, &principal, &down, &m.AnnualRatePercent, &m.TermMonths,
		&startDate, &monthly, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.AccountID = accountValue(accountID)
	m.StartDate = civil.DateOf(startDate)
	if m.Principal, err = money(principal, currency); err != nil {
		return nil, err
	}
	if m.DownPayment, err = money(down, currency); err != nil {
		return nil, err
	}
	if m.MonthlyPayment, err = money(monthly, currency); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT period, due_date, payment, principal, interest, remaining_balance
		FROM mortgage_payments WHERE mortgage_id = $1 ORDER BY period`, id)
	if err != nil {
		return nil, fmt.Errorf("could not query mortgage schedule: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                                     finance.ScheduleEntry
			due                                   time.Time
			payment, principalPart, interest, rem decimal.Decimal
		)
		if err := rows.Scan(&e.Period, &due, &payment, &principalPart, &interest, &rem); err != nil {
			return nil, fmt.Errorf("could not scan schedule row: %w", err)
		}
		e.DueDate = civil.DateOf(due)
		for _, f := range []struct {
			dst *finance.Money
			src decimal.Decimal
		}{{&e.Payment, payment}, {&e.Principal, principalPart}, {&e.Interest, interest}, {&e.RemainingBalance, rem}} {
			if *f.dst, err = money(f.src, currency); err != nil {
				return nil, err
			}
		}
		m.Schedule = append(m.Schedule, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read mortgage schedule: %w", err)
	}
	return m, nil
}

// CreateDeposit stores the terms of a deposit. Balances are projected on read.
func (s *PostgresStore) CreateDeposit(ctx context.Context, d *model.Deposit) error {
	d.DepositID = uuid.New()
	query := `
		INSERT INTO deposits (deposit_id, currency, principal, annual_rate_percent, compounding, start_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err := s.db.QueryRow(ctx, query,
		d.DepositID, d.Principal.Currency(), d.Principal.Amount(), d.AnnualRatePercent,
		string(d.Compounding), toDate(d.StartDate),
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not insert deposit: %w", mapWriteError(err))
	}
	return nil
}

// GetDeposit retrieves a single deposit by its ID.
func (s *PostgresStore) GetDeposit(ctx context.Context, id uuid.UUID) (*model.Deposit, error) {
	var (
		currency, compounding string
		principal             decimal.Decimal
		startDate             time.Time
	)
	d := &model.Deposit{DepositID: id}
	query := `
		SELECT currency, principal, annual_rate_percent, compounding, start_date, created_at
		FROM deposits WHERE deposit_id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(
		&currency, &principal, &d.AnnualRatePercent, &compounding, &startDate, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Compounding = finance.Compounding(compounding)
	d.StartDate = civil.DateOf(startDate)
	if d.Principal, err = money(principal, currency); err != nil {
		return nil, err
	}
	return d, nil
}

// CreateSplit stores a split and one row per participant share.
func (s *PostgresStore) CreateSplit(ctx context.Context, sp *model.Split) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sp.SplitID = uuid.New()
	query := `
		INSERT INTO transaction_splits (split_id, payer_account_id, description, currency, total_amount, mode)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	err = tx.QueryRow(ctx, query,
		sp.SplitID, nullableAccount(sp.PayerAccountID), sp.Description, sp.Total.Currency(),
		sp.Total.Amount(), string(sp.Mode),
	).Scan(&sp.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not insert split: %w", mapWriteError(err))
	}

	batch := &pgx.Batch{}
	for i := range sp.Participants {
		p := &sp.Participants[i]
		p.ID = uuid.New()
		if p.Paid.Currency() == "" {
			p.Paid = finance.Zero(sp.Total.Currency())
		}
		batch.Queue(`
			INSERT INTO split_participants (participant_id, split_id, position, participant_ref, share_amount, paid_amount)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, sp.SplitID, i, p.ParticipantID, p.Share.Amount(), p.Paid.Amount())
	}
	br := tx.SendBatch(ctx, batch)
	for range sp.Participants {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("could not insert split participant: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("could not insert split participants: %w", err)
	}

	return tx.Commit(ctx)
}

// GetSplit retrieves a split with its participants in their original order.
func (s *PostgresStore) GetSplit(ctx context.Context, id uuid.UUID) (*model.Split, error) {
	var (
		payer    *int64
		currency string
		mode     string
		total    decimal.Decimal
	)
	sp := &model.Split{SplitID: id}
	query := `
		SELECT payer_account_id, description, currency, total_amount, mode, created_at
		FROM transaction_splits WHERE split_id = $1`
	err := s.db.QueryRow(ctx, query, id).Scan(&payer, &sp.Description, &currency, &total, &mode, &sp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sp.PayerAccountID = accountValue(payer)
	sp.Mode = finance.SplitMode(mode)
	if sp.Total, err = money(total, currency); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT participant_id, participant_ref, share_amount, paid_amount
		FROM split_participants WHERE split_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("could not query split participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p           model.SplitParticipant
			share, paid decimal.Decimal
		)
		if err := rows.Scan(&p.ID, &p.ParticipantID, &share, &paid); err != nil {
			return nil, fmt.Errorf("could not scan split participant: %w", err)
		}
		if p.Share, err = money(share, currency); err != nil {
			return nil, err
		}
		if p.Paid, err = money(paid, currency); err != nil {
			return nil, err
		}
		sp.Participants = append(sp.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read split participants: %w", err)
	}
	return sp, nil
}

// RecordSplitPayment settles part of a participant's share. Payments larger
// than the outstanding amount are refused with ErrOverpayment.
func (s *PostgresStore) RecordSplitPayment(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (*model.SplitPayment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		currency    string
		share, paid decimal.Decimal
	)
	query := `
		SELECT s.currency, p.share_amount, p.paid_amount
		FROM split_participants p JOIN transaction_splits s ON s.split_id = p.split_id
		WHERE p.participant_id = $1
		FOR UPDATE OF p`
	if err := tx.QueryRow(ctx, query, participantID).Scan(&currency, &share, &paid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not lock split participant: %w", err)
	}

	payment, err := finance.NewMoney(amount, currency)
	if err != nil {
		return nil, err
	}
	if !payment.IsPositive() {
		return nil, &finance.InvalidInputError{Field: "amount", Reason: "must be positive"}
	}
	outstanding := share.Sub(paid)
	if amount.GreaterThan(outstanding) {
		return nil, fmt.Errorf("%w: %s outstanding", ErrOverpayment, outstanding.StringFixed(finance.Scale(currency)))
	}

	if _, err := tx.Exec(ctx, "UPDATE split_participants SET paid_amount = paid_amount + $1 WHERE participant_id = $2", amount, participantID); err != nil {
		return nil, fmt.Errorf("could not update split participant: %w", err)
	}

	result := &model.SplitPayment{PaymentID: uuid.New(), ParticipantID: participantID, Amount: payment}
	insertQuery := `
		INSERT INTO split_payments (payment_id, participant_id, amount)
		VALUES ($1, $2, $3)
		RETURNING paid_at`
	if err := tx.QueryRow(ctx, insertQuery, result.PaymentID, participantID, amount).Scan(&result.PaidAt); err != nil {
		return nil, fmt.Errorf("could not record split payment: %w", err)
	}
	if result.Outstanding, err = money(outstanding.Sub(amount), currency); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("could not commit split payment: %w", err)
	}
	return result, nil
}
