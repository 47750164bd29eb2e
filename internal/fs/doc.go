// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: the operations needed to publish an index (open, rename,
//     remove, list, directory sync)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects write, sync, rename and listing
//     failures for paths matching a pattern
//
// # Usage
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 100})
//	// inject ffs into the index builder
//
// Operations take no context.Context. Local filesystem calls are not
// interruptible at the syscall level.
package fs
