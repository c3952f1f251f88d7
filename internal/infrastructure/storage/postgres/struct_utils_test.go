package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backoffice/internal/core/id"
)

type AuditColumns struct {
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

type sampleRow struct {
	AuditColumns
	ID       id.ID  `db:"id"`
	Number   string `db:"number"`
	Version  int    `db:"version"`
	Computed string `db:"-"`
	internal string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()
	assert.Equal(t, []string{"created_at", "updated_at", "id", "number", "version"}, cols)

	assert.Equal(t, cols, ExtractDBColumns[*sampleRow]())
	assert.Nil(t, ExtractDBColumns[int]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := sampleRow{
		AuditColumns: AuditColumns{CreatedAt: now},
		ID:           id.New(),
		Number:       "ORD-2026-00001",
		Version:      5,
		Computed:     "skip",
		internal:     "skip",
	}

	m := StructToMap(&row)

	assert.Len(t, m, 5)
	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, "ORD-2026-00001", m["number"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Nil(t, m["updated_at"])
	assert.NotContains(t, m, "-")

	assert.Nil(t, StructToMap(42))
}
