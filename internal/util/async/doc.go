// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] runs independent operations concurrently and returns all of
// their errors. The doctor command uses it to probe host tools at once.
package async
