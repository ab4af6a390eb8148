// Package auth defines the identity boundary used across the platform.
//
// It owns account registration, email verification, credential checks,
// and bearer token issuance so other services can depend on stable user
// IDs instead of re-implementing identity rules.
//
// Subpackages:
//   - app: the account lifecycle service
//   - token: JWT signing and verification
//   - password: bcrypt hashing and policy
//   - verification: emailed signup codes and SMTP delivery
package auth
