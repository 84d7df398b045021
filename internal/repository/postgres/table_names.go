package postgres

import "fmt"

// TableNames holds dynamically prefixed table names. Prefixes separate
// dev/test/prod data inside one database.
type TableNames struct {
	Conversations string
	Messages      string
	Profiles      string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Conversations: fmt.Sprintf("%sconversations", prefix),
		Messages:      fmt.Sprintf("%smessages", prefix),
		Profiles:      fmt.Sprintf("%sprofiles", prefix),
	}
}
