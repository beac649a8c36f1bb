// Package internal holds cross-cutting primitives shared by the root
// package and its flows: session id generation and the refresh token wire
// codec. Nothing here is part of the public API.
package internal
