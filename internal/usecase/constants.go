package usecase

import "time"

// DefaultTransactionTimeout is the maximum time a posting database
// transaction may hold the account lock.
const DefaultTransactionTimeout = 30 * time.Second
