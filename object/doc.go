// Package object implements the saffire object runtime model.
//
// This package contains:
//   - the universal object header shared by classes and instances
//   - deterministic reference counting with an owning handle (Ref)
//   - attribute tables holding properties, constants and methods
//   - the process-wide registry of built-in classes (Runtime)
//   - the built-in scalar types and the root "base" class
//   - exception raising into the runtime's in-flight slot
//
// The runtime is single threaded. No operation in this package takes a lock.
package object
