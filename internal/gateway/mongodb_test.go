package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fintrack-sync/internal/model"
)

func TestPlainDocument_ConvertsBSONContainers(t *testing.T) {
	decoded := bson.M{
		"name": "Ada",
		"meta": primitive.M{"note": "a"},
		"tags": primitive.A{"x", primitive.M{"k": int32(1)}},
		"ordered": primitive.D{
			{Key: "first", Value: primitive.A{"y"}},
		},
	}

	doc := plainDocument(decoded)

	require.IsType(t, map[string]any{}, doc["meta"])
	require.IsType(t, []any{}, doc["tags"])
	require.IsType(t, map[string]any{}, doc["tags"].([]any)[1])
	require.IsType(t, map[string]any{}, doc["ordered"])
	require.IsType(t, []any{}, doc["ordered"].(map[string]any)["first"])
	assert.Equal(t, "Ada", doc["name"])
	assert.Nil(t, plainDocument(nil))
}

func TestPlainDocument_CloneIsIsolated(t *testing.T) {
	orig := model.Document(plainDocument(bson.M{
		"meta": primitive.M{"note": "a"},
		"tags": primitive.A{"x"},
	}))

	cloned := model.CloneValue(orig).(model.Document)
	cloned["meta"].(map[string]any)["note"] = "mutated"
	cloned["tags"].([]any)[0] = "mutated"

	assert.Equal(t, "a", orig["meta"].(map[string]any)["note"])
	assert.Equal(t, "x", orig["tags"].([]any)[0])
}
