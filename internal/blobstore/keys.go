package blobstore

import "fmt"

// Key prefixes. The layout is shared with existing catalogs and must not change.
const (
	ImagePrefix     = "img"
	TextPrefix      = "txt"
	NarrationPrefix = "tts"
)

// PageFileName is the per-page token, e.g. "1a2b3c4d_page_03".
func PageFileName(docID string, page int) string {
	return fmt.Sprintf("%s_page_%02d", docID, page)
}

func ImageKey(docID string, page int) string {
	return fmt.Sprintf("%s/%s/%s.png", ImagePrefix, docID, PageFileName(docID, page))
}

func TextKey(docID string, page int) string {
	return fmt.Sprintf("%s/%s/%s.txt", TextPrefix, docID, PageFileName(docID, page))
}

func NarrationKey(docID string, page int) string {
	return fmt.Sprintf("%s/%s/%s.mp3", NarrationPrefix, docID, PageFileName(docID, page))
}

func DescriptionNarrationKey(docID string, page int) string {
	return fmt.Sprintf("%s/%s/%s_img_desc_page_%02d.mp3", NarrationPrefix, docID, docID, page)
}

// CoverKey is the image of the first page.
func CoverKey(docID string) string {
	return ImageKey(docID, 1)
}

// Prefixes lists every prefix holding objects of a document.
func Prefixes(docID string) []string {
	return []string{
		ImagePrefix + "/" + docID + "/",
		TextPrefix + "/" + docID + "/",
		NarrationPrefix + "/" + docID + "/",
	}
}
