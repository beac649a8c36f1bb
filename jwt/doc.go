// Package jwt issues and verifies the short-lived access tokens minted
// alongside each session. Verification is fully offline.
package jwt
