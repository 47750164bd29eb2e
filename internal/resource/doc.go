// Package resource bounds the work an index build may do at once.
//
// A [Controller] combines a worker semaphore, which caps how many module
// files are decoded concurrently, with a token-bucket limiter on bytes read
// from module files. Builds on shared machines can thereby run without
// starving the compilations they serve.
package resource
