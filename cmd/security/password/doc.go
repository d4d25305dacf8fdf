// Package password provides password hashing and verification for vidtube.
//
// It implements argon2id hashing using a PHC-style encoded string and includes:
//   - configurable argon2id parameters (via environment variables)
//   - password policy validation
//   - strict hash decoding and verification with anti-DoS bounds
package password
