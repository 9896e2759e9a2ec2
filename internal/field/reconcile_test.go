package field

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorder(t *testing.T) {
	f := newTestField(t, Config{}, newFakeStorage())

	record := newRecord("a", "b", "c")
	f.Reorder(record, "c,a,b")
	assert.Equal(t, []string{"c", "a", "b"}, record.Attachments(testPath).IDs())
}

func TestReorderUnknownIDsSortFirst(t *testing.T) {
	f := newTestField(t, Config{}, newFakeStorage())

	record := newRecord("a", "b", "c")
	f.Reorder(record, "c,x")
	assert.Equal(t, []string{"a", "b", "c"}, record.Attachments(testPath).IDs())

	record = newRecord("c", "a", "b")
	f.Reorder(record, "c,x")
	assert.Equal(t, []string{"a", "b", "c"}, record.Attachments(testPath).IDs())
}

func TestApplyActions(t *testing.T) {
	store := newFakeStorage()
	f := newTestField(t, Config{}, store)
	record := newRecord("a", "b", "c", "d")

	f.ApplyActions(context.Background(), record, "delete:a|reset:b|clear:c|delete:|nonsense")

	assert.Equal(t, []string{"c", "d"}, record.Attachments(testPath).IDs())
	assert.Equal(t, "uploads/a.txt", waitDeleted(t, store))
	assert.Empty(t, store.deleted)
}

func TestApplyActionsMultipleIDs(t *testing.T) {
	store := newFakeStorage()
	f := newTestField(t, Config{}, store)
	record := newRecord("a", "b", "c")

	f.ApplyActions(context.Background(), record, "delete:a,c")

	assert.Equal(t, []string{"b"}, record.Attachments(testPath).IDs())
	assert.ElementsMatch(t, []string{"uploads/a.txt", "uploads/c.txt"}, []string{waitDeleted(t, store), waitDeleted(t, store)})
}

func TestHandleRequestWithoutFilesCompletesSynchronously(t *testing.T) {
	store := newFakeStorage()
	f := newTestField(t, Config{}, store)
	record := newRecord("a", "b")

	called := false
	f.HandleRequest(context.Background(), record, Payload{
		Order: "b,a",
		Files: []UploadRequest{{Name: ""}, {SourcePath: "/tmp/x"}},
	}, func(result BatchResult) {
		called = true
		assert.Empty(t, result.Outcomes)
	})

	assert.True(t, called)
	assert.Equal(t, []string{"b", "a"}, record.Attachments(testPath).IDs())
	assert.Empty(t, store.putCalls())
}

func TestApplyRequestRunsStepsInOrder(t *testing.T) {
	store := newFakeStorage()
	f := newTestField(t, Config{S3Path: "uploads"}, store)
	record := newRecord("a", "b", "c")

	result := f.ApplyRequest(context.Background(), record, Payload{
		Order:  "c,b,a",
		Action: "reset:b",
		Files: []UploadRequest{
			{Name: "new.txt", MimeType: "text/plain", Size: 3},
			{Name: ""},
		},
	})

	require.Len(t, result.Outcomes, 1)
	require.NoError(t, result.Err())

	list := record.Attachments(testPath)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "new.txt", list[2].Filename)
	assert.Equal(t, "uploads/", list[2].Path)
	assert.True(t, f.IsModified(record))
}

func TestApplyActionsIgnoresTrailingSegments(t *testing.T) {
	f := newTestField(t, Config{}, newFakeStorage())
	record := newRecord("a", "b", "a:b")

	f.ApplyActions(context.Background(), record, "reset:a:b")

	assert.Equal(t, []string{"b", "a:b"}, record.Attachments(testPath).IDs())
}
