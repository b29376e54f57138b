package rollback

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a SQL expert specializing in generating idempotent rollback scripts."

// BuildPrompt renders the instructions sent to a language model for req.
func BuildPrompt(req Request) string {
	tables := "Unknown"
	if len(req.Tables) > 0 {
		tables = strings.Join(req.Tables, ", ")
	}

	return fmt.Sprintf(`You are a Senior Database Engineer. Generate an IDEMPOTENT rollback SQL script that undoes the statement below.

CRITICAL REQUIREMENTS:
1. The rollback script MUST be idempotent (safe to run multiple times without side effects)
2. The rollback script MUST be syntactically correct and executable
3. For UPDATE statements: restore the previous values
4. For DELETE statements: restore the deleted rows (if possible, or provide a backup/restore approach)
5. For INSERT statements: remove the inserted rows
6. For ALTER/DROP/TRUNCATE: recreate the object or restore it from backup
7. Include clear comments explaining what the rollback does

Original SQL Statement:
`+"```sql\n%s\n```"+`

Statement Type: %s
Affected Tables: %s

Generate ONLY the rollback SQL script. If the rollback needs data that may not be available (e.g., previous values for UPDATE), explain the limitation in comments and suggest taking a backup first.

Return the SQL script in a code block (`+"```sql ... ```"+`).`, req.SQL, req.Type, tables)
}
