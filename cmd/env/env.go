// Package env holds the environment variable names shared by the commands
package env

const (
	// Prefix is the prefix of every service environment variable
	Prefix = "CNBRATES_"

	// DBURLSuffix is the suffix of the Postgres DSN variable (CNBRATES_DB_URL)
	DBURLSuffix = "DB_URL"
)
