// Package vpm resolves version constraints over a registry graph,
// materializes chosen versions into a shared depot, and records
// reproducible environments (spec.md §1). This file is the ambient error
// taxonomy every op returns through: typed, wrapped with
// github.com/pkg/errors the way golang-dep wraps every fallible call
// site, so callers can distinguish "bad input" from "network hiccup"
// from "constraint conflict" without parsing error strings.
package vpm

import "github.com/pkg/errors"

// SpecError wraps a malformed Project.toml/Manifest.toml or an invalid
// version/compat spec string.
type SpecError struct{ cause error }

func (e *SpecError) Error() string { return "spec: " + e.cause.Error() }
func (e *SpecError) Unwrap() error { return e.cause }

func wrapSpec(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &SpecError{cause: errors.Wrap(err, msg)}
}

// RegistryError wraps a failure reading or merging registry data.
type RegistryError struct{ cause error }

func (e *RegistryError) Error() string { return "registry: " + e.cause.Error() }
func (e *RegistryError) Unwrap() error { return e.cause }

func wrapRegistry(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &RegistryError{cause: errors.Wrap(err, msg)}
}

// ResolverError wraps Unsatisfiable/Cycle/UnknownPackage from
// internal/resolver, keeping the underlying typed error reachable via
// errors.Cause/errors.As.
type ResolverError struct{ cause error }

func (e *ResolverError) Error() string { return "resolve: " + e.cause.Error() }
func (e *ResolverError) Unwrap() error { return e.cause }

func wrapResolver(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ResolverError{cause: errors.Wrap(err, msg)}
}

// IOError wraps a filesystem failure outside the atomic-commit path
// (reads, directory creation, lock acquisition).
type IOError struct{ cause error }

func (e *IOError) Error() string { return "io: " + e.cause.Error() }
func (e *IOError) Unwrap() error { return e.cause }

func wrapIO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &IOError{cause: errors.Wrap(err, msg)}
}

// NetworkError wraps a download-engine failure.
type NetworkError struct{ cause error }

func (e *NetworkError) Error() string { return "network: " + e.cause.Error() }
func (e *NetworkError) Unwrap() error { return e.cause }

func wrapNetwork(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &NetworkError{cause: errors.Wrap(err, msg)}
}

// HashError wraps a tree-hash/file-hash mismatch surfaced by the
// installer.
type HashError struct{ cause error }

func (e *HashError) Error() string { return "hash: " + e.cause.Error() }
func (e *HashError) Unwrap() error { return e.cause }

func wrapHash(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &HashError{cause: errors.Wrap(err, msg)}
}

// ConflictError wraps a name-conflict or hash-mismatch across layered
// registries (spec.md §9 Open Question (b)): two registries naming the
// same UUID differently is always an error in this implementation, never
// a silent preference.
type ConflictError struct{ cause error }

func (e *ConflictError) Error() string { return "conflict: " + e.cause.Error() }
func (e *ConflictError) Unwrap() error { return e.cause }

func wrapConflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ConflictError{cause: errors.Wrap(err, msg)}
}
