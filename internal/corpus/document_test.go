package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artsmia/miarag/internal/errors"
)

func TestParse(t *testing.T) {
	t.Run("populated record keeps id and fields", func(t *testing.T) {
		// Given a full record
		data := []byte(`{
			"id": "12345",
			"title": "Sunflowers",
			"artist": "Vincent van Gogh",
			"medium": "Oil on canvas",
			"room": "G301"
		}`)

		// When parsed
		doc, err := Parse("objects/1/12345.json", data)

		// Then known fields survive and unknown ones are dropped
		require.NoError(t, err)
		assert.Equal(t, "12345", doc.ID)
		assert.Equal(t, "objects/1/12345.json", doc.Path)
		assert.Equal(t, "Sunflowers", doc.Fields["title"])
		assert.Equal(t, "Vincent van Gogh", doc.Fields["artist"])
		assert.NotContains(t, doc.Fields, "room")
	})

	t.Run("missing id falls back to relative path", func(t *testing.T) {
		doc, err := Parse("objects/2/222.json", []byte(`{"title":"Vase"}`))

		require.NoError(t, err)
		assert.Equal(t, "objects/2/222.json", doc.ID)
	})

	t.Run("numeric id renders without exponent", func(t *testing.T) {
		doc, err := Parse("objects/3/333.json", []byte(`{"id": 333}`))

		require.NoError(t, err)
		assert.Equal(t, "333", doc.ID)
	})

	t.Run("non-object payload is a skippable document error", func(t *testing.T) {
		_, err := Parse("objects/bad.json", []byte(`["not", "an", "object"]`))

		require.Error(t, err)
		assert.Equal(t, errors.CodeDocumentNotObject, errors.CodeOf(err))
		assert.True(t, errors.IsSkippable(err))
	})

	t.Run("malformed JSON is a skippable document error", func(t *testing.T) {
		_, err := Parse("objects/bad.json", []byte(`{"title": `))

		require.Error(t, err)
		assert.Equal(t, errors.CodeDocumentInvalid, errors.CodeOf(err))
		assert.True(t, errors.IsSkippable(err))
	})
}

func TestAssembleText(t *testing.T) {
	t.Run("fields render labeled in fixed order", func(t *testing.T) {
		// Given a record whose JSON keys arrive in arbitrary order
		doc, err := Parse("objects/1.json", []byte(`{
			"medium": "Oil on canvas",
			"title": "Sunflowers",
			"creditline": "Bequest of a donor",
			"artist": "Vincent van Gogh"
		}`))
		require.NoError(t, err)

		// Then assembly follows the fixed field order, not JSON order
		want := "Title: Sunflowers\n" +
			"Artist: Vincent van Gogh\n" +
			"Medium: Oil on canvas\n" +
			"Creditline: Bequest of a donor"
		assert.Equal(t, want, doc.AssembleText())
	})

	t.Run("empty record assembles to empty string", func(t *testing.T) {
		doc, err := Parse("objects/1.json", []byte(`{"room":"G301"}`))
		require.NoError(t, err)

		assert.Empty(t, doc.AssembleText())
	})
}

func TestHashFile(t *testing.T) {
	t.Run("stable digest for identical bytes", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.json")
		b := filepath.Join(dir, "b.json")
		require.NoError(t, os.WriteFile(a, []byte(`{"title":"Vase"}`), 0o644))
		require.NoError(t, os.WriteFile(b, []byte(`{"title":"Vase"}`), 0o644))

		ha, err := HashFile(a)
		require.NoError(t, err)
		hb, err := HashFile(b)
		require.NoError(t, err)

		assert.Equal(t, ha, hb)
		assert.Len(t, ha, 64)
	})

	t.Run("different bytes hash differently", func(t *testing.T) {
		dir := t.TempDir()
		a := filepath.Join(dir, "a.json")
		b := filepath.Join(dir, "b.json")
		require.NoError(t, os.WriteFile(a, []byte(`{"title":"Vase"}`), 0o644))
		require.NoError(t, os.WriteFile(b, []byte(`{"title":"Bowl"}`), 0o644))

		ha, err := HashFile(a)
		require.NoError(t, err)
		hb, err := HashFile(b)
		require.NoError(t, err)

		assert.NotEqual(t, ha, hb)
	})

	t.Run("missing file is a document error", func(t *testing.T) {
		_, err := HashFile(filepath.Join(t.TempDir(), "missing.json"))

		require.Error(t, err)
		assert.Equal(t, errors.CodeDocumentUnreadable, errors.CodeOf(err))
	})
}
