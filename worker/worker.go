// Package worker implements a minimal transaction/worker shell kept outside
// the core engine: a queue of operations run serially against a table
// handle, with no concurrency or multi-statement atomicity of its own.
package worker

import (
	"sync"

	"github.com/rs/zerolog"
)

// Op is one queued unit of work. It returns an error to abort the rest of
// the queue, or nil to continue.
type Op func() error

// Transaction is an ordered queue of Ops that Run executes serially,
// stopping at the first error.
type Transaction struct {
	ops []Op
}

// NewTransaction returns an empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{}
}

// Add appends op to the transaction's queue.
func (tx *Transaction) Add(op Op) {
	tx.ops = append(tx.ops, op)
}

// Run executes every queued Op in order, returning the first error
// encountered (if any) and how many Ops ran to completion before it.
func (tx *Transaction) Run() (completed int, err error) {
	for _, op := range tx.ops {
		if err := op(); err != nil {
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// Worker holds a queue of Transactions and runs them serially — one
// transaction completes (or aborts) before the next starts. It provides no
// isolation beyond that ordering: keeping a single writer per table is
// still the caller's responsibility.
type Worker struct {
	mu           sync.Mutex
	transactions []*Transaction
	log          zerolog.Logger
}

// New returns an empty Worker.
func New(log zerolog.Logger) *Worker {
	return &Worker{log: log}
}

// AddTransaction enqueues tx.
func (w *Worker) AddTransaction(tx *Transaction) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transactions = append(w.transactions, tx)
}

// Run drains the queue, running every transaction to completion (or
// abort) before starting the next, and returns the first error
// encountered across the whole run, if any. It does not stop the queue
// on a transaction error — later-queued transactions still run.
func (w *Worker) Run() error {
	w.mu.Lock()
	pending := w.transactions
	w.transactions = nil
	w.mu.Unlock()

	var first error
	for i, tx := range pending {
		completed, err := tx.Run()
		if err != nil {
			w.log.Debug().Int("transaction", i).Int("completed_ops", completed).Err(err).
				Msg("worker: transaction aborted")
			if first == nil {
				first = err
			}
			continue
		}
		w.log.Debug().Int("transaction", i).Int("completed_ops", completed).
			Msg("worker: transaction complete")
	}
	return first
}
