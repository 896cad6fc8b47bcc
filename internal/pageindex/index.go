// Package pageindex is the meeting point of the text and image extraction
// passes. Each pass merges its per-page results by page number; whichever
// pass sees a page first creates the record and the other extends it.
package pageindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/google/uuid"
)

// State of a page record.
type State int

const (
	Absent State = iota
	TextSeeded
	ImageSeeded
	Converged
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case TextSeeded:
		return "text-seeded"
	case ImageSeeded:
		return "image-seeded"
	case Converged:
		return "converged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type pass uint8

const (
	textPass pass = 1 << iota
	imagePass
)

// TextResult holds the fields owned by the text pass.
type TextResult struct {
	Text         *string
	Lang         string
	LangAccuracy int
	TxtFileKey   string
	TTSKey       string
	TxtFileURL   string
	TTSURL       string
	CreateTxtTTS bool
}

func (r TextResult) apply(e *models.Elements) {
	e.Text = r.Text
	e.Lang = r.Lang
	e.LangAccuracy = r.LangAccuracy
	e.TxtFileKey = r.TxtFileKey
	e.TTSKey = r.TTSKey
	e.TxtFileURL = r.TxtFileURL
	e.TTSURL = r.TTSURL
	e.CreateTxtTTS = r.CreateTxtTTS
}

// ImageResult holds the fields owned by the image pass.
type ImageResult struct {
	ImgKey              string
	ImgURL              string
	ImgDescription      *string
	ImgDescLang         string
	ImgDescLangAccuracy int
	ImgTTSKey           string
	ImgTTSURL           string
	CreateImgTTS        bool
}

func (r ImageResult) apply(e *models.Elements) {
	e.ImgKey = r.ImgKey
	e.ImgURL = r.ImgURL
	e.ImgDescription = r.ImgDescription
	e.ImgDescLang = r.ImgDescLang
	e.ImgDescLangAccuracy = r.ImgDescLangAccuracy
	e.ImgTTSKey = r.ImgTTSKey
	e.ImgTTSURL = r.ImgTTSURL
	e.CreateImgTTS = r.CreateImgTTS
}

// Entry records which page id was minted for a page number. Entries are
// append-only and never consulted for lookups.
type Entry struct {
	PageNum int
	PageID  string
}

// Index is owned by a single conversion. The mutex only guards against a
// future interleaving of the two passes.
type Index struct {
	mu      sync.Mutex
	docID   string
	pages   map[int]*models.Page
	visited map[int]pass
	entries []Entry
	newID   func() string
}

func New(docID string) *Index {
	return &Index{
		docID:   docID,
		pages:   make(map[int]*models.Page),
		visited: make(map[int]pass),
		newID:   uuid.NewString,
	}
}

// MergeText stores the text pass result for pageNum and returns the new state.
func (ix *Index) MergeText(pageNum int, r TextResult) (State, error) {
	return ix.merge(pageNum, textPass, r.apply)
}

// MergeImage stores the image pass result for pageNum and returns the new state.
func (ix *Index) MergeImage(pageNum int, r ImageResult) (State, error) {
	return ix.merge(pageNum, imagePass, r.apply)
}

func (ix *Index) merge(pageNum int, p pass, apply func(*models.Elements)) (State, error) {
	if pageNum < 1 {
		return Absent, fmt.Errorf("invalid page number %d", pageNum)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	page, ok := ix.pages[pageNum]
	if !ok {
		page = &models.Page{
			PageNum:  pageNum,
			PageID:   ix.newID(),
			FileName: blobstore.PageFileName(ix.docID, pageNum),
		}
		ix.pages[pageNum] = page
		ix.entries = append(ix.entries, Entry{PageNum: pageNum, PageID: page.PageID})
	}
	page.MasterDoc = ix.docID
	apply(&page.Elements)
	ix.visited[pageNum] |= p

	return stateOf(ix.visited[pageNum]), nil
}

func stateOf(v pass) State {
	switch v {
	case textPass:
		return TextSeeded
	case imagePass:
		return ImageSeeded
	case textPass | imagePass:
		return Converged
	default:
		return Absent
	}
}

// Get returns a copy of the page record, if present.
func (ix *Index) Get(pageNum int) (models.Page, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	page, ok := ix.pages[pageNum]
	if !ok {
		return models.Page{}, false
	}
	return *page, true
}

func (ix *Index) State(pageNum int) State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return stateOf(ix.visited[pageNum])
}

func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.pages)
}

// Entries returns the (page number, page id) pairs in creation order.
func (ix *Index) Entries() []Entry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]Entry(nil), ix.entries...)
}

// Pages materializes the records ordered by page number.
func (ix *Index) Pages() []models.Page {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pages := make([]models.Page, 0, len(ix.pages))
	for _, page := range ix.pages {
		pages = append(pages, *page)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNum < pages[j].PageNum })
	return pages
}

// Converged reports whether pages 1..n all exist, were visited by both
// passes, and nothing else is in the index.
func (ix *Index) Converged(n int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.pages) != n {
		return fmt.Errorf("index holds %d pages, expected %d", len(ix.pages), n)
	}
	for i := 1; i <= n; i++ {
		if s := stateOf(ix.visited[i]); s != Converged {
			return fmt.Errorf("page %d is %s", i, s)
		}
	}
	return nil
}
