package models

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Elements is the per-page payload. Text fields are owned by the text
// extraction pass, img fields by the image extraction pass.
//
// Object keys are what gets persisted. The *URL fields are signed read URLs
// and are never stored in the catalog; they are recomputed on every read.
type Elements struct {
	// Text pass.
	Text         *string `firestore:"text" json:"text"`
	Lang         string  `firestore:"lang" json:"lang"`
	LangAccuracy int     `firestore:"lang_accuracy" json:"lang_accuracy"`
	TxtFileKey   string  `firestore:"txt_file_key,omitempty" json:"-"`
	TTSKey       string  `firestore:"tts_key,omitempty" json:"-"`
	CreateTxtTTS bool    `firestore:"create_txt_tts" json:"create_txt_tts"`

	// Image pass.
	ImgKey              string  `firestore:"img_key,omitempty" json:"-"`
	ImgDescription      *string `firestore:"img_description" json:"img_description"`
	ImgDescLang         string  `firestore:"img_desc_lang" json:"img_desc_lang"`
	ImgDescLangAccuracy int     `firestore:"img_desc_lang_accuracy" json:"img_desc_lang_accuracy"`
	ImgTTSKey           string  `firestore:"img_tts_key,omitempty" json:"-"`
	CreateImgTTS        bool    `firestore:"create_img_tts" json:"create_img_tts"`

	TxtFileURL string `firestore:"-" json:"txt_file_url,omitempty"`
	TTSURL     string `firestore:"-" json:"tts_url,omitempty"`
	ImgURL     string `firestore:"-" json:"img_url,omitempty"`
	ImgTTSURL  string `firestore:"-" json:"img_tts_url,omitempty"`
}

// Page is one page of a booklet, unique by PageNum within its document.
type Page struct {
	PageNum   int      `firestore:"page_num" json:"page_num"`
	MasterDoc string   `firestore:"master_doc" json:"master_doc"`
	PageID    string   `firestore:"page_id" json:"page_id"`
	FileName  string   `firestore:"file_name" json:"file_name"`
	Elements  Elements `firestore:"elements" json:"elements"`
}

// Booklet is the catalog record for one converted PDF.
type Booklet struct {
	DocID          string `firestore:"doc_id" json:"doc_id"`
	DocName        string `firestore:"doc_name" json:"doc_name"`
	DocTitle       string `firestore:"doc_title" json:"doc_title"`
	DocDescription string `firestore:"doc_description" json:"doc_description"`
	OwnerID        string `firestore:"owner_id" json:"owner_id"`
	CreatedAt      int64  `firestore:"created_at" json:"created_at"`
	ModifyAt       int64  `firestore:"modify_at" json:"modify_at"`
	NumberOfPages  int    `firestore:"number_of_pages" json:"number_of_pages"`
	CoverImgKey    string `firestore:"cover_img_key,omitempty" json:"-"`
	CoverImg       string `firestore:"-" json:"cover_img,omitempty"`
	IsPublished    bool   `firestore:"is_published" json:"is_published"`
	TTSReady       bool   `firestore:"tts_ready" json:"tts_ready"`
	Pages          []Page `firestore:"pages,omitempty" json:"pages,omitempty"`
}

// SummaryFields is the projection used by list views. Page detail is withheld.
var SummaryFields = []string{
	"doc_id",
	"doc_name",
	"doc_title",
	"doc_description",
	"number_of_pages",
	"owner_id",
	"created_at",
	"modify_at",
	"cover_img_key",
	"is_published",
	"tts_ready",
}

// MaxDescriptionLength bounds DocDescription, in runes.
const MaxDescriptionLength = 500

// DocumentID derives the booklet id from the source file name: the first
// 4 bytes of a SHAKE-128 digest, hex encoded. It does not look at content.
func DocumentID(fileName string) string {
	sum := make([]byte, 4)
	sha3.ShakeSum128(sum, []byte(fileName))
	return hex.EncodeToString(sum)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
