package field

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"tush00nka/s3files/internal/model"
)

// Payload is one form-style update of the field.
type Payload struct {
	// Order is a comma-separated list of attachment ids.
	Order string
	// Action holds "|"-separated "method:id1,id2" instructions, method being
	// delete or reset.
	Action string
	Files  []UploadRequest
}

// HandleRequest applies payload to entity: reorder, then removals, then
// uploads. done receives the upload batch result; it is called before
// HandleRequest returns when there is nothing to upload.
func (f *Field) HandleRequest(ctx context.Context, entity Entity, payload Payload, done func(BatchResult)) {
	if done == nil {
		done = func(BatchResult) {}
	}
	f.hooks.Seal()

	if payload.Order != "" {
		f.Reorder(entity, payload.Order)
	}
	if payload.Action != "" {
		f.ApplyActions(ctx, entity, payload.Action)
	}

	files := make([]UploadRequest, 0, len(payload.Files))
	for _, file := range payload.Files {
		if file.Name != "" {
			files = append(files, file)
		}
	}
	if len(files) == 0 {
		done(BatchResult{})
		return
	}

	f.UploadFiles(ctx, entity, files, true, done)
}

// ApplyRequest is HandleRequest that waits for the uploads to settle.
func (f *Field) ApplyRequest(ctx context.Context, entity Entity, payload Payload) BatchResult {
	ch := make(chan BatchResult, 1)
	f.HandleRequest(ctx, entity, payload, func(result BatchResult) {
		ch <- result
	})
	return <-ch
}

// Reorder sorts the list by the position of each id in order. Ids missing
// from order get position -1 and therefore come first, keeping their
// relative order.
func (f *Field) Reorder(entity Entity, order string) {
	ids := strings.Split(order, ",")
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}

	list := slices.Clone(entity.Attachments(f.path))
	slices.SortStableFunc(list, func(a, b model.Attachment) int {
		return cmp.Compare(slices.Index(ids, a.ID), slices.Index(ids, b.ID))
	})
	entity.SetAttachments(f.path, list)
}

// ApplyActions runs delete/reset instructions. Malformed instructions are
// skipped.
func (f *Field) ApplyActions(ctx context.Context, entity Entity, action string) {
	for _, instruction := range strings.Split(action, "|") {
		parts := strings.Split(instruction, ":")
		if len(parts) < 2 {
			continue
		}
		// всё после второго ":" отбрасывается
		method, ids := parts[0], parts[1]
		if ids == "" || (method != "delete" && method != "reset") {
			continue
		}

		for _, id := range strings.Split(ids, ",") {
			if id == "" {
				continue
			}
			switch method {
			case "delete":
				f.Delete(ctx, entity, id)
			case "reset":
				f.ResetItem(entity, id)
			}
		}
	}
}
