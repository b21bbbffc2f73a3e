// Package storage is habitbot's SQLite persistence layer.
//
// One database file holds the habit records, the owner directory and the
// trigger/job schedule tables. The package implements the collaborator
// surfaces the domain consumes: habit.Store, habit.OwnerDirectory and the
// schedule trigger/job stores.
package storage
