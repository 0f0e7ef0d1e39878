// Package repository provides the generic record store: an in-memory
// backend and a Bun backend behind one Repository contract covering CRUD,
// query specifications, pagination and validated bulk updates.
package repository
