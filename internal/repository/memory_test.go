package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
	"github.com/storagehub/storaged/internal/session"
)

type todoMeta struct {
	Tag string `bson:"tag,omitempty"`
}

type todo struct {
	document.Document `bson:",inline"`
	Done              bool     `bson:"done"`
	Meta              todoMeta `bson:"meta,omitempty"`
}

func (todo) Collection() string { return "Todo" }

func newTodo(name string) *todo {
	return &todo{Document: document.New(name)}
}

func newTodoRepo() *Memory[todo, *todo] {
	return NewMemory[todo](session.Static{UserName: "repo-test"})
}

func TestMemory_InsertOne_StampsCreator(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), newTodo("write tests"))
	require.NoError(t, err)
	require.Equal(t, "repo-test", inserted.CreatedBy)
	require.Nil(t, inserted.UpdatedAt)
	require.Nil(t, inserted.UpdatedBy)

	got, err := repo.FindByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "write tests", got.Name)
	require.Equal(t, "repo-test", got.CreatedBy)
	require.Nil(t, got.UpdatedAt)
}

func TestMemory_InsertOne_AssignsMissingID(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), &todo{})
	require.NoError(t, err)
	require.False(t, inserted.ID.IsZero())
}

func TestMemory_InsertMany(t *testing.T) {
	repo := newTodoRepo()
	docs := []*todo{newTodo("a"), newTodo("b")}
	out, err := repo.InsertMany(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, d := range out {
		require.Equal(t, "repo-test", d.CreatedBy)
	}

	n, err := repo.Query().Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestMemory_InsertMany_Empty(t *testing.T) {
	repo := newTodoRepo()
	_, err := repo.InsertMany(context.Background(), nil)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestMemory_ReplaceOne_StampsEditor(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), newTodo("pending"))
	require.NoError(t, err)

	inserted.Done = true
	replaced, err := repo.ReplaceOne(context.Background(), inserted)
	require.NoError(t, err)
	require.NotNil(t, replaced.UpdatedAt)
	require.NotNil(t, replaced.UpdatedBy)
	require.Equal(t, "repo-test", *replaced.UpdatedBy)

	got, err := repo.FindByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	require.True(t, got.Done)
	require.NotNil(t, got.UpdatedAt)
}

func TestMemory_ReplaceOne_MissingIsNotFound(t *testing.T) {
	repo := newTodoRepo()
	ghost := newTodo("ghost")
	_, err := repo.ReplaceOne(context.Background(), ghost)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// nothing was created by the failed replace
	n, err := repo.Query().Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestMemory_FindByID_Malformed(t *testing.T) {
	repo := newTodoRepo()
	_, err := repo.FindByID(context.Background(), "zzz")
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestMemory_FindByID_Unknown(t *testing.T) {
	repo := newTodoRepo()
	_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_FindOne(t *testing.T) {
	repo := newTodoRepo()
	_, err := repo.InsertOne(context.Background(), newTodo("a"))
	require.NoError(t, err)
	b := newTodo("b")
	b.Done = true
	_, err = repo.InsertOne(context.Background(), b)
	require.NoError(t, err)

	got, err := repo.FindOne(context.Background(), bson.M{"done": true})
	require.NoError(t, err)
	require.Equal(t, "b", got.Name)

	_, err = repo.FindOne(context.Background(), bson.M{"name": "missing"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_FilterBy_DottedPath(t *testing.T) {
	repo := newTodoRepo()
	urgent := newTodo("urgent")
	urgent.Meta.Tag = "now"
	_, err := repo.InsertOne(context.Background(), urgent)
	require.NoError(t, err)
	_, err = repo.InsertOne(context.Background(), newTodo("later"))
	require.NoError(t, err)

	got, err := repo.FilterBy(context.Background(), bson.M{"meta.tag": "now"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "urgent", got[0].Name)
}

func TestMemory_FilterBy_Exists(t *testing.T) {
	repo := newTodoRepo()
	a, err := repo.InsertOne(context.Background(), newTodo("a"))
	require.NoError(t, err)

	// freshly inserted documents have no update stamp
	got, err := repo.FilterBy(context.Background(), bson.M{"updatedAt": bson.M{"$exists": false}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = repo.ReplaceOne(context.Background(), a)
	require.NoError(t, err)
	got, err = repo.FilterBy(context.Background(), bson.M{"updatedAt": bson.M{"$exists": true}})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMemory_FilterByProjected(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), newTodo("project me"))
	require.NoError(t, err)

	rows, err := repo.FilterByProjected(context.Background(), bson.M{}, bson.M{"name": 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "project me", rows[0]["name"])
	require.Equal(t, inserted.ID, rows[0]["_id"])
	require.NotContains(t, rows[0], "done")

	rows, err = repo.FilterByProjected(context.Background(), bson.M{}, bson.M{"name": 1, "_id": 0})
	require.NoError(t, err)
	require.NotContains(t, rows[0], "_id")
}

func TestMemory_ReadsAreIsolatedCopies(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), newTodo("shared"))
	require.NoError(t, err)

	first, err := repo.FindByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := repo.FindByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "shared", second.Name)
}

func TestMemory_DeleteOne(t *testing.T) {
	repo := newTodoRepo()
	_, err := repo.InsertOne(context.Background(), newTodo("bye"))
	require.NoError(t, err)

	deleted, err := repo.DeleteOne(context.Background(), bson.M{"name": "bye"})
	require.NoError(t, err)
	require.Equal(t, "bye", deleted.Name)

	_, err = repo.DeleteOne(context.Background(), bson.M{"name": "bye"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_DeleteByID(t *testing.T) {
	repo := newTodoRepo()
	inserted, err := repo.InsertOne(context.Background(), newTodo("bye"))
	require.NoError(t, err)

	deleted, err := repo.DeleteByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, inserted.ID, deleted.ID)

	_, err = repo.FindByID(context.Background(), inserted.ID.Hex())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_DeleteMany(t *testing.T) {
	repo := newTodoRepo()
	done := newTodo("d1")
	done.Done = true
	done2 := newTodo("d2")
	done2.Done = true
	_, err := repo.InsertMany(context.Background(), []*todo{done, done2, newTodo("keep")})
	require.NoError(t, err)

	n, err := repo.DeleteMany(context.Background(), bson.M{"done": true})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = repo.DeleteMany(context.Background(), bson.M{"done": true})
	require.NoError(t, err)
	require.EqualValues(t, 0, n)

	remaining, err := repo.FilterBy(context.Background(), bson.M{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "keep", remaining[0].Name)
}
