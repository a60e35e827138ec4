// Package secret handles password material for dspasswd.
//
// Verifiers use PBKDF2-HMAC-SHA256 with:
//   - 32-byte random salt (stored alongside the sum)
//   - 210,000 iterations (OWASP minimum recommendation)
//   - constant-time comparison of derived sums
//
// Memory safety:
//   - Use ClearBytes() to zero cleartext secrets immediately after use,
//     on every exit path
//   - Use Clone() when a secret must outlive the buffer it was read into
package secret
