// Package dslocal provides the BBolt-backed local directory node.
//
// Database structure uses three buckets:
//   - config: schema version, node name, timestamps (unencrypted)
//   - users: public record attributes as JSON (for lookups)
//   - shadow: PBKDF2 password verifiers, kept apart from the public
//     attributes
//
// Authorization model: password verification is always enforced when an
// old secret or an authorizer secret is presented. A self-service change
// with no old secret is permitted, because the ability to open the
// datastore read-write is gated by its 0600 file mode and therefore is
// itself the authorization (a privileged caller on the local node).
//
// BBolt provides ACID transactions, file locking, and corruption
// detection; each password mutation is a single transaction.
package dslocal
