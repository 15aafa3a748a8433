package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"
)

// inspectFixture builds a minimal `docker inspect` document with the given
// port bindings, e.g. {"5432/tcp": "40001"}.
func inspectFixture(t *testing.T, bindings map[string]string) []byte {
	t.Helper()

	doc := "[]"
	var err error
	doc, err = sjson.Set(doc, "0.Id", "abc123")
	require.NoError(t, err)

	for containerPort, hostPort := range bindings {
		path := "0.NetworkSettings.Ports." + containerPort + ".0.HostPort"
		doc, err = sjson.Set(doc, path, hostPort)
		require.NoError(t, err)
	}
	return []byte(doc)
}

func TestParsePortBinding(t *testing.T) {
	t.Run("returns host port for bound container port", func(t *testing.T) {
		doc := inspectFixture(t, map[string]string{"5432/tcp": "40001"})

		port, err := parsePortBinding(doc, 5432)
		require.NoError(t, err)
		assert.Equal(t, uint16(40001), port)
	})

	t.Run("no binding for requested port", func(t *testing.T) {
		doc := inspectFixture(t, map[string]string{"3306/tcp": "40002"})

		_, err := parsePortBinding(doc, 5432)
		assert.ErrorIs(t, err, ErrNoBinding)
	})

	t.Run("no bindings at all", func(t *testing.T) {
		doc := inspectFixture(t, nil)

		_, err := parsePortBinding(doc, 5432)
		assert.ErrorIs(t, err, ErrNoBinding)
	})

	t.Run("unparsable host port", func(t *testing.T) {
		doc := inspectFixture(t, map[string]string{"5432/tcp": "not-a-port"})

		_, err := parsePortBinding(doc, 5432)
		assert.ErrorIs(t, err, ErrNoBinding)
	})
}

func TestParseContainerList(t *testing.T) {
	t.Run("parses line-delimited json", func(t *testing.T) {
		row1, err := sjson.Set("{}", "ID", "aaa")
		require.NoError(t, err)
		row1, err = sjson.Set(row1, "Names", "tenant-db1")
		require.NoError(t, err)
		row1, err = sjson.Set(row1, "State", "running")
		require.NoError(t, err)

		row2, err := sjson.Set("{}", "ID", "bbb")
		require.NoError(t, err)
		row2, err = sjson.Set(row2, "Names", "tenant-db2")
		require.NoError(t, err)

		containers := parseContainerList([]byte(row1 + "\n" + row2 + "\n"))
		require.Len(t, containers, 2)
		assert.Equal(t, Container{ID: "aaa", Name: "tenant-db1", State: "running"}, containers[0])
		assert.Equal(t, "tenant-db2", containers[1].Name)
	})

	t.Run("skips blank and incomplete rows", func(t *testing.T) {
		out := []byte("\n{\"ID\":\"only-id\"}\n{\"Names\":\"only-name\"}\n")
		assert.Empty(t, parseContainerList(out))
	})
}

func TestMatchByName(t *testing.T) {
	containers := []Container{
		{ID: "1", Name: "acme_db1_postgres"},
		{ID: "2", Name: "db1"},
		{ID: "3", Name: "db2"},
	}

	t.Run("exact match wins over substring", func(t *testing.T) {
		c, ok := MatchByName(containers, "db1")
		require.True(t, ok)
		assert.Equal(t, "2", c.ID)
	})

	t.Run("falls back to substring match", func(t *testing.T) {
		c, ok := MatchByName(containers[:1], "db1")
		require.True(t, ok)
		assert.Equal(t, "1", c.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := MatchByName(containers, "db9")
		assert.False(t, ok)
	})
}
