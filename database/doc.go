// Package database provides connection management, configuration loading,
// versioned migrations, SQL error classification, query hooks, logging and
// health checks built on top of Bun.
package database
