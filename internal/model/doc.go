// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. important interfaces that are shared by several packages
// within the codebase, with the objective of separating unrelated
// pieces of code and making unit testing easier;
//
// 2. important pieces of data that are shared across different
// packages (e.g., the shaping parameters).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// - http.go: the HTTP transport and client interfaces that the
// emulator consumes and exposes;
//
// - logger.go: generic definition of an apex/log compatible logger,
// used in several places across the codebase;
//
// - shaping.go: the shaping parameters value type.
package model
