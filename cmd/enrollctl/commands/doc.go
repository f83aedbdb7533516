// Package commands implements enrollctl, the operator CLI for the
// enrollment service: signing and replaying webhook deliveries, applying
// the Postgres schema and seeding user accounts.
package commands
