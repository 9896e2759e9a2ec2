package model

import (
	"slices"
	"sync"

	"gorm.io/gorm"
)

// Record родительская запись, владеющая полями-вложениями
type Record struct {
	gorm.Model
	Title     string                    `json:"title"`
	Fields    map[string]AttachmentList `json:"fields" gorm:"serializer:json;type:jsonb"`
	CreatedBy uint                      `json:"created_by" gorm:"index"`
	UpdatedBy uint                      `json:"updated_by" gorm:"index"`

	// mu охраняет Fields и modified, пока загрузки пакета идут параллельно
	mu       sync.RWMutex
	actorID  uint
	modified map[string]bool
}

// Attachments возвращает копию списка вложений поля
func (r *Record) Attachments(path string) AttachmentList {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Fields == nil {
		return nil
	}
	return slices.Clone(r.Fields[path])
}

func (r *Record) SetAttachments(path string, list AttachmentList) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fields == nil {
		r.Fields = make(map[string]AttachmentList)
	}
	if r.modified == nil {
		r.modified = make(map[string]bool)
	}
	r.Fields[path] = list
	r.modified[path] = true
}

func (r *Record) IsModified(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modified[path]
}

// SetActor запоминает пользователя, от имени которого меняется запись
func (r *Record) SetActor(userID uint) {
	r.actorID = userID
}

// BeforeSave проставляет автора и последнего редактора
func (r *Record) BeforeSave(tx *gorm.DB) error {
	if r.actorID == 0 {
		return nil
	}
	if r.ID == 0 && r.CreatedBy == 0 {
		r.CreatedBy = r.actorID
	}
	r.UpdatedBy = r.actorID
	return nil
}
