// Package models defines the core domain models for the Ajo service.
//
// An Ajo (also called esusu) is a rotating savings group: a fixed set of
// members each contribute the same amount every cycle, and one member
// receives the whole pool per cycle in join order until everyone has been
// paid once.
//
// # Models
//
//   - Group: the rotating circle, its parameters and rotation state
//   - GroupMetadata: optional display information set by the creator
//   - GroupStatus: a read-only snapshot of the current cycle
//   - Withdrawal: the result of an emergency withdrawal
//   - User: a registered account whose ID is the member identity
//
// Members are identified by opaque identity strings. When a request is
// authenticated the identity is the User ID carried in the token.
//
// # Design Principles
//
//  1. Members is append-only; its order is the payout order
//  2. Contribution, payout and withdrawal facts live in the ledger store,
//     not on the Group record
//  3. Amounts are integer minor units (no floating point)
package models
