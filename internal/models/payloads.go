package models

// These structs define the inputs of the conversion pipeline and the JSON
// payloads exchanged with the catalog API.

// ConvertRequest is the input for the booklet converter.
type ConvertRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Title       string
	Description string
	OwnerID     string
}

// BookletPatch is a partial update of a booklet. Nil fields are left alone.
type BookletPatch struct {
	Title       *string        `json:"doc_title,omitempty"`
	Description *string        `json:"doc_description,omitempty"`
	PageTexts   map[int]string `json:"page_texts,omitempty"`
}

// Empty reports whether the patch names no field at all.
func (p BookletPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && len(p.PageTexts) == 0
}

// DeleteBookletResponse is returned once a booklet and its objects are gone.
type DeleteBookletResponse struct {
	DeletedBookletID string `json:"deleted_booklet_id"`
	Username         string `json:"username,omitempty"`
}

// ConverterEvent is the argument passed to the post-conversion workflow.
type ConverterEvent struct {
	DocumentID string `json:"documentId"`
	PageCount  int    `json:"pageCount"`
	OwnerID    string `json:"ownerId"`
}
