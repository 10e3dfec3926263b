// Package database provides connection management for postgres, mysql and
// sqlite, versioned migrations with inline foreign keys, SQL error
// classification, query logging and health checks built on top of Bun.
package database
