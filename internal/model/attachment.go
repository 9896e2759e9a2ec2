package model

import "time"

// Attachment метаданные одного файла, байты которого лежат в S3
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Filetype string `json:"filetype"`
	URL      string `json:"url"`
}

// Key возвращает ключ объекта в бакете
func (a Attachment) Key() string {
	return a.Path + a.Filename
}

// AttachmentList упорядоченный список вложений одного поля
type AttachmentList []Attachment

func (l AttachmentList) IndexOf(id string) int {
	for i, a := range l {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (l AttachmentList) Find(id string) (Attachment, bool) {
	if i := l.IndexOf(id); i >= 0 {
		return l[i], true
	}
	return Attachment{}, false
}

func (l AttachmentList) IDs() []string {
	ids := make([]string, 0, len(l))
	for _, a := range l {
		ids = append(ids, a.ID)
	}
	return ids
}

// UploadFailure описывает файл, который не удалось загрузить
type UploadFailure struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadReport итог последней пачки загрузок для записи
type UploadReport struct {
	RecordID   uint            `json:"record_id"`
	Field      string          `json:"field"`
	Uploaded   AttachmentList  `json:"uploaded"`
	Failures   []UploadFailure `json:"failures"`
	FinishedAt time.Time       `json:"finished_at"`
}
