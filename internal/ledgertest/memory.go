// Package ledgertest provides an in-memory database for tests. It mimics the
// PostgreSQL behaviour the ledger relies on: writes stay private to a transaction
// until commit, row and advisory locks are held until the transaction ends, and
// a unique idempotency key blocks a second writer until the first one finishes.
// Inserting a header or an entry takes a key share lock on every referenced
// account row, the way a foreign key check does, so a statement order that would
// deadlock on PostgreSQL fails here with ErrDeadlock.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/ledger"
	"github.com/bank-ledger-core/internal/domain/outbox"
	"github.com/bank-ledger-core/internal/domain/shared"
	"github.com/bank-ledger-core/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the shared committed state
type DB struct {
	mu sync.Mutex

	accounts  map[uuid.UUID]*account.Account
	entries   []*ledger.Entry
	headers   map[uuid.UUID]*transaction.Transaction
	keys      map[string]uuid.UUID
	outbox    []*outbox.Message
	nextMsgID int64

	lockMu   sync.Mutex
	lockCond *sync.Cond
	rows     map[uuid.UUID]*rowState
	waiting  map[*Tx]lockRequest

	keyLocks  map[string]*sync.Mutex
	numbering sync.Mutex

	// FailAppend, when set, is consulted before every entry append
	FailAppend func(entry *ledger.Entry) error
	// FailBalance, when set, is consulted before every balance read
	FailBalance func(accountID uuid.UUID) error
	// FailCreateAccount, when set, is consulted before every account insert
	FailCreateAccount func(acc *account.Account) error
}

func NewDB() *DB {
	db := &DB{
		accounts: make(map[uuid.UUID]*account.Account),
		headers:  make(map[uuid.UUID]*transaction.Transaction),
		keys:     make(map[string]uuid.UUID),
		rows:     make(map[uuid.UUID]*rowState),
		waiting:  make(map[*Tx]lockRequest),
		keyLocks: make(map[string]*sync.Mutex),
	}
	db.lockCond = sync.NewCond(&db.lockMu)
	return db
}

// Tx holds uncommitted writes and the locks taken so far. Only the methods the
// repositories need are implemented; the embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx

	db       *DB
	accounts []*account.Account
	entries  []*ledger.Entry
	headers  []*transaction.Transaction
	outbox   []*outbox.Message
	held     []*sync.Mutex
	rows     []uuid.UUID
	done     bool
}

// ExecuteTx implements persistence.Transactor
func (db *DB) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx := &Tx{db: db}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction abandoned: %w", err)
	}

	tx.commit()
	return nil
}

func (tx *Tx) commit() {
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, acc := range tx.accounts {
		db.accounts[acc.ID] = acc
	}
	for _, header := range tx.headers {
		db.headers[header.ID] = header
		if header.IdempotencyKey != "" {
			db.keys[header.IdempotencyKey] = header.ID
		}
	}
	db.entries = append(db.entries, tx.entries...)
	for _, msg := range tx.outbox {
		db.nextMsgID++
		msg.ID = db.nextMsgID
		db.outbox = append(db.outbox, msg)
	}
}

// release unlocks everything in reverse order once the outcome is visible
func (tx *Tx) release() {
	if tx.done {
		return
	}
	tx.done = true
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
	tx.unlockRows()
}

func (tx *Tx) hold(m *sync.Mutex) {
	m.Lock()
	tx.held = append(tx.held, m)
}

func (db *DB) keyLock(key string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.keyLocks[key]
	if !ok {
		m = &sync.Mutex{}
		db.keyLocks[key] = m
	}
	return m
}

func asTx(tx pgx.Tx) *Tx {
	memTx, ok := tx.(*Tx)
	if !ok {
		panic(fmt.Sprintf("ledgertest: unexpected transaction type %T", tx))
	}
	return memTx
}

// SeedAccount commits an account directly
func (db *DB) SeedAccount(number int64) *account.Account {
	acc, err := account.NewAccount(number)
	if err != nil {
		panic(err)
	}
	db.mu.Lock()
	db.accounts[acc.ID] = acc
	db.mu.Unlock()
	return acc
}

// Entries returns a copy of the committed entries
func (db *DB) Entries() []*ledger.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*ledger.Entry(nil), db.entries...)
}

// Outbox returns a copy of the committed outbox messages
func (db *DB) Outbox() []*outbox.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]*outbox.Message(nil), db.outbox...)
}

// Headers returns the number of committed transaction headers
func (db *DB) Headers() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.headers)
}

// CommittedBalance sums the committed entries of an account
func (db *DB) CommittedBalance(accountID uuid.UUID) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sumLocked(accountID)
}

func (db *DB) sumLocked(accountID uuid.UUID) int64 {
	var sum int64
	for _, e := range db.entries {
		if e.AccountID == accountID {
			sum += e.Amount
		}
	}
	return sum
}

// Accounts is an account.Repository over the DB
type Accounts struct {
	db *DB
	tx *Tx
}

func (db *DB) Accounts() *Accounts { return &Accounts{db: db} }

func (r *Accounts) WithTx(tx pgx.Tx) account.Repository {
	return &Accounts{db: r.db, tx: asTx(tx)}
}

func (r *Accounts) LockNumbering(ctx context.Context) error {
	if r.tx == nil {
		return errors.New("ledgertest: numbering lock outside a transaction")
	}
	r.tx.hold(&r.db.numbering)
	return nil
}

func (r *Accounts) LatestNumber(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest int64
	for _, acc := range r.db.accounts {
		if acc.Number > latest {
			latest = acc.Number
		}
	}
	if r.tx != nil {
		for _, acc := range r.tx.accounts {
			if acc.Number > latest {
				latest = acc.Number
			}
		}
	}
	return latest, nil
}

func (r *Accounts) Create(ctx context.Context, acc *account.Account) error {
	if r.db.FailCreateAccount != nil {
		if err := r.db.FailCreateAccount(acc); err != nil {
			return err
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.accounts {
		if existing.Number == acc.Number {
			return account.ErrDuplicateNumber{Number: acc.Number}
		}
	}

	if r.tx == nil {
		r.db.accounts[acc.ID] = acc
		return nil
	}
	r.tx.accounts = append(r.tx.accounts, acc)
	return nil
}

func (r *Accounts) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if acc, ok := r.db.accounts[id]; ok {
		return acc, nil
	}
	return nil, account.ErrAccountNotFound{AccountID: id}
}

func (r *Accounts) GetByNumber(ctx context.Context, number int64) (*account.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, acc := range r.db.accounts {
		if acc.Number == number {
			return acc, nil
		}
	}
	return nil, account.ErrAccountNotFound{Number: number}
}

func (r *Accounts) List(ctx context.Context) ([]*account.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	accounts := make([]*account.Account, 0, len(r.db.accounts))
	for _, acc := range r.db.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Number < accounts[j].Number })
	return accounts, nil
}

func (r *Accounts) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	acc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.tx == nil {
		return nil, errors.New("ledgertest: row lock outside a transaction")
	}
	if err := r.tx.lockRow(ctx, id, forUpdate); err != nil {
		return nil, err
	}
	return acc, nil
}

// Ledger is a ledger.Store over the DB
type Ledger struct {
	db *DB
	tx *Tx
}

func (db *DB) Ledger() *Ledger { return &Ledger{db: db} }

func (s *Ledger) WithTx(tx pgx.Tx) ledger.Store {
	return &Ledger{db: s.db, tx: asTx(tx)}
}

func (s *Ledger) Append(ctx context.Context, entry *ledger.Entry) error {
	if s.db.FailAppend != nil {
		if err := s.db.FailAppend(entry); err != nil {
			return err
		}
	}
	if s.tx == nil {
		s.db.mu.Lock()
		s.db.entries = append(s.db.entries, entry)
		s.db.mu.Unlock()
		return nil
	}
	if err := s.tx.lockRow(ctx, entry.AccountID, keyShare); err != nil {
		return err
	}
	s.tx.entries = append(s.tx.entries, entry)
	return nil
}

func (s *Ledger) Balance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if s.db.FailBalance != nil {
		if err := s.db.FailBalance(accountID); err != nil {
			return 0, err
		}
	}
	s.db.mu.Lock()
	sum := s.db.sumLocked(accountID)
	s.db.mu.Unlock()
	if s.tx != nil {
		for _, e := range s.tx.entries {
			if e.AccountID == accountID {
				sum += e.Amount
			}
		}
	}
	return sum, nil
}

// Transactions is a transaction.Repository over the DB
type Transactions struct {
	db *DB
	tx *Tx
}

func (db *DB) Transactions() *Transactions { return &Transactions{db: db} }

func (r *Transactions) WithTx(tx pgx.Tx) transaction.Repository {
	return &Transactions{db: r.db, tx: asTx(tx)}
}

// Create takes key share on the referenced accounts, then blocks on the key
// until its current owner finishes, like a unique index
func (r *Transactions) Create(ctx context.Context, txn *transaction.Transaction) error {
	if r.tx == nil {
		return errors.New("ledgertest: header insert outside a transaction")
	}
	for _, ref := range []*transaction.AccountRef{txn.Origin, txn.Destination} {
		if ref == nil {
			continue
		}
		if err := r.tx.lockRow(ctx, ref.ID, keyShare); err != nil {
			return err
		}
	}
	if txn.IdempotencyKey != "" {
		r.tx.hold(r.db.keyLock(txn.IdempotencyKey))
		r.db.mu.Lock()
		_, taken := r.db.keys[txn.IdempotencyKey]
		r.db.mu.Unlock()
		if taken {
			return transaction.ErrDuplicateIdempotencyKey{Key: txn.IdempotencyKey}
		}
	}
	r.tx.headers = append(r.tx.headers, txn)
	return nil
}

func (r *Transactions) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id, ok := r.db.keys[key]
	if !ok {
		return nil, nil
	}
	return r.db.headers[id], nil
}

// Outbox is an outbox.Repository over the DB. Only Create is transactional.
type Outbox struct {
	db *DB
	tx *Tx
}

func (db *DB) OutboxRepo() *Outbox { return &Outbox{db: db} }

func (r *Outbox) WithTx(tx pgx.Tx) outbox.Repository {
	return &Outbox{db: r.db, tx: asTx(tx)}
}

func (r *Outbox) Create(ctx context.Context, message *outbox.Message) error {
	if r.tx == nil {
		return errors.New("ledgertest: outbox insert outside a transaction")
	}
	r.tx.outbox = append(r.tx.outbox, message)
	return nil
}

func (r *Outbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var pending []*outbox.Message
	for _, msg := range r.db.outbox {
		if msg.Status == shared.OutboxStatusPending && len(pending) < limit {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

func (r *Outbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, msg := range r.db.outbox {
		if msg.ID == id {
			msg.Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *Outbox) IncrementAttempts(ctx context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, msg := range r.db.outbox {
		if msg.ID == id {
			msg.Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *Outbox) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, msg := range r.db.outbox {
		if msg.TransactionID == transactionID {
			return msg, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{}
}

var (
	_ account.Repository     = (*Accounts)(nil)
	_ ledger.Store           = (*Ledger)(nil)
	_ transaction.Repository = (*Transactions)(nil)
	_ outbox.Repository      = (*Outbox)(nil)
)
