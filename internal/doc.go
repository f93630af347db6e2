// Package internal holds cryptographic helpers shared by the authcore
// packages: verification code generation and generated-username suffixes.
//
// # Architecture boundaries
//
// This package must stay dependency-free (stdlib crypto/rand only) and must
// not import authcore or any of its sub-packages.
package internal
