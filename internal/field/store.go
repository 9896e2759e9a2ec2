package field

import (
	"context"
	"log"

	"tush00nka/s3files/internal/model"
)

// ExistsAny reports whether the field holds at least one attachment.
func (f *Field) ExistsAny(entity Entity) bool {
	return len(entity.Attachments(f.path)) > 0
}

// Exists reports whether attachment id is present with its storage path and
// filename populated. The object store itself is not consulted.
func (f *Field) Exists(entity Entity, id string) bool {
	att, ok := entity.Attachments(f.path).Find(id)
	if !ok {
		return false
	}
	return att.Path != "" && att.Filename != ""
}

// Reset clears the whole list.
func (f *Field) Reset(entity Entity) {
	entity.SetAttachments(f.path, model.AttachmentList{})
}

// ResetItem removes attachment id from the list, if present.
func (f *Field) ResetItem(entity Entity, id string) {
	list := entity.Attachments(f.path)
	i := list.IndexOf(id)
	if i < 0 {
		return
	}

	next := make(model.AttachmentList, 0, len(list)-1)
	next = append(next, list[:i]...)
	next = append(next, list[i+1:]...)
	entity.SetAttachments(f.path, next)
}

// Delete removes attachment id from the entity. The remote object is deleted
// in the background; its outcome never affects the local removal.
func (f *Field) Delete(ctx context.Context, entity Entity, id string) {
	if f.Exists(entity, id) {
		att, _ := entity.Attachments(f.path).Find(id)
		go f.deleteObject(context.WithoutCancel(ctx), att.Key())
	}
	f.ResetItem(entity, id)
}

func (f *Field) deleteObject(ctx context.Context, key string) {
	start := f.now()
	err := f.client.DeleteObject(ctx, key)
	f.observer.RecordDelete(f.now().Sub(start), err)
	if err != nil {
		log.Printf("failed to delete object %s for field %s: %v", key, f.path, err)
	}
}
