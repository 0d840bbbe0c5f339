package ledgertest

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// lockMode mirrors the two row lock strengths the ledger touches. A foreign key
// insert takes keyShare on the referenced row; SELECT ... FOR UPDATE takes
// forUpdate. The two conflict, and two forUpdate holders conflict.
type lockMode int

const (
	keyShare lockMode = iota
	forUpdate
)

type rowState struct {
	owner   *Tx
	sharers map[*Tx]struct{}
}

type lockRequest struct {
	row  uuid.UUID
	mode lockMode
}

// ErrDeadlock is what a waiter gets when its wait would close a cycle
var ErrDeadlock = &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}

func (db *DB) row(id uuid.UUID) *rowState {
	st, ok := db.rows[id]
	if !ok {
		st = &rowState{sharers: make(map[*Tx]struct{})}
		db.rows[id] = st
	}
	return st
}

// blockers lists the other transactions tx has to wait for
func (st *rowState) blockers(tx *Tx, mode lockMode) []*Tx {
	var out []*Tx
	if st.owner != nil && st.owner != tx {
		out = append(out, st.owner)
	}
	if mode == forUpdate {
		for sharer := range st.sharers {
			if sharer != tx {
				out = append(out, sharer)
			}
		}
	}
	return out
}

// lockRow waits until tx may hold the row in the given mode. A wait that would
// close a cycle fails at once with ErrDeadlock, and the caller is expected to
// roll back so the other side can continue.
func (tx *Tx) lockRow(ctx context.Context, id uuid.UUID, mode lockMode) error {
	db := tx.db
	stop := context.AfterFunc(ctx, func() {
		db.lockMu.Lock()
		db.lockCond.Broadcast()
		db.lockMu.Unlock()
	})
	defer stop()

	db.lockMu.Lock()
	defer db.lockMu.Unlock()
	defer delete(db.waiting, tx)

	for {
		st := db.row(id)
		blockers := st.blockers(tx, mode)
		if len(blockers) == 0 {
			if mode == forUpdate {
				st.owner = tx
			} else {
				st.sharers[tx] = struct{}{}
			}
			tx.rows = append(tx.rows, id)
			return nil
		}
		if db.waitsOn(blockers, tx) {
			return ErrDeadlock
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		db.waiting[tx] = lockRequest{row: id, mode: mode}
		db.lockCond.Wait()
	}
}

// waitsOn reports whether any of from is, directly or through other waiters,
// waiting for target. Callers hold lockMu.
func (db *DB) waitsOn(from []*Tx, target *Tx) bool {
	seen := make(map[*Tx]bool)
	queue := append([]*Tx(nil), from...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == target {
			return true
		}
		if seen[next] {
			continue
		}
		seen[next] = true
		req, ok := db.waiting[next]
		if !ok {
			continue
		}
		queue = append(queue, db.row(req.row).blockers(next, req.mode)...)
	}
	return false
}

func (tx *Tx) unlockRows() {
	db := tx.db
	db.lockMu.Lock()
	defer db.lockMu.Unlock()
	for _, id := range tx.rows {
		st := db.row(id)
		if st.owner == tx {
			st.owner = nil
		}
		delete(st.sharers, tx)
	}
	tx.rows = nil
	db.lockCond.Broadcast()
}
