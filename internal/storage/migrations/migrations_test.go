package migrations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts, err := splitStatements(`-- header
CREATE TABLE a (x String);

-- second
INSERT INTO a VALUES ('it''s');
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (x String)",
		"INSERT INTO a VALUES ('it''s')",
	}, stmts)
}

func TestSplitStatements_RejectsSemicolonInLiteral(t *testing.T) {
	_, err := splitStatements("INSERT INTO a VALUES ('x;y');")
	assert.True(t, errors.Is(err, errSemicolonInString))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/launches")
	require.NoError(t, err)
	assert.Equal(t, "launches", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_init.sql", pg[0].name)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)

	stmts, err := splitStatements(ch[0].body)
	require.NoError(t, err)
	assert.Len(t, stmts, 1)
}
