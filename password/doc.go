// Package password hashes and verifies credentials with argon2id,
// serialized in PHC string format. It backs the credential check made
// at login and is usable standalone by UserStore implementations.
package password
