// Package modindex maintains a global index over a directory of precompiled
// module files.
//
// A module cache accumulates many module files. Finding which of them
// declare a given top-level name would otherwise mean loading every one.
// The index records, for every namespace-scope identifier and method
// selector, which module files bind it, plus the direct import edges
// between module files. It stores existence facts only, never declarations.
//
// # Reading
//
//	idx, err := modindex.ReadIndex(dir)
//	switch modindex.OutcomeOf(err) {
//	case modindex.OutcomeReady:
//	    defer idx.Close()
//	    hits := modindex.HitSet{}
//	    if ok, err := idx.LookupIdentifier("Foo", hits); err == nil && ok {
//	        // load only the modules in hits
//	    }
//	case modindex.OutcomeNotFound:
//	    // trigger a build, then scan modules directly this time
//	case modindex.OutcomeBuilding, modindex.OutcomeIOError:
//	    // scan modules directly
//	}
//
// The index is a pure optimization: no outcome is fatal, and every query has
// a fallback. ReadIndex never waits for a concurrent writer.
//
// # Writing
//
//	err := modindex.WriteIndex(ctx, dir)
//
// WriteIndex holds a build marker (LockFileName) for its duration, writes a
// new file next to the index and renames it into place. Readers observe the
// old index, no index, or the new index, never a partial one.
//
// # Staleness
//
// The index is never patched. Module files that change after a build are
// detected when the index is opened: their identities no longer match, and
// they are dropped from KnownModules and lookup hits (see
// WithValidateOnOpen). A lookup may still report that a name exists when
// the only module binding it has changed; callers detect this by comparing
// identities with identity.Same.
//
// # On-Disk Layout
//
// See package internal/format for the container and internal/hashtable for
// the identifier table.
package modindex
