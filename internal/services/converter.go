package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/logger"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/Lllllllleong/bookletflow/internal/narration"
	"github.com/Lllllllleong/bookletflow/internal/pageindex"
	"github.com/Lllllllleong/bookletflow/internal/pdfdoc"
	"github.com/Lllllllleong/bookletflow/internal/textclean"
	"github.com/Lllllllleong/bookletflow/internal/vision"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Narrator produces MP3 narration.
type Narrator interface {
	Synthesize(ctx context.Context, text string, gender narration.Gender) ([]byte, error)
}

// ImageDescriber returns ("", false, nil) when it intentionally skips.
type ImageDescriber interface {
	Describe(ctx context.Context, image vision.Image, lang string) (string, bool, error)
}

// LanguageDetector returns ("", 0) for blank text and ("err", 0) on failure.
type LanguageDetector interface {
	Detect(text string) (string, int)
}

// BookletWriter persists a finished booklet. Get reports an absent booklet
// either as (nil, nil) or as a NotFound error.
type BookletWriter interface {
	Get(ctx context.Context, docID string) (*models.Booklet, error)
	Put(ctx context.Context, b *models.Booklet) error
}

// objectURIer is implemented by blob backends whose objects the vision model
// can read directly.
type objectURIer interface {
	ObjectURI(key string) string
}

// ConverterConfig holds the tunables of the conversion pipeline.
type ConverterConfig struct {
	DPI            float64
	CallTimeout    time.Duration
	MaxDescription int
	MaxUploadBytes int64
}

// ConverterDeps are the collaborators of the pipeline. All of them are safe
// to share between concurrent conversions.
type ConverterDeps struct {
	Opener    pdfdoc.Opener
	Blobs     blobstore.Store
	Detector  LanguageDetector
	Narrator  Narrator
	Describer ImageDescriber
	Catalog   BookletWriter
	// Pool bounds how many extraction passes run at once across conversions.
	Pool *semaphore.Weighted
}

// ConverterFunction turns an uploaded PDF into a persisted booklet.
type ConverterFunction struct {
	deps   ConverterDeps
	config ConverterConfig
	now    func() time.Time
}

func NewConverter(cfg ConverterConfig, deps ConverterDeps) *ConverterFunction {
	if cfg.DPI <= 0 {
		cfg.DPI = pdfdoc.DefaultDPI
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if deps.Opener == nil {
		deps.Opener = pdfdoc.FitzOpener{}
	}
	if deps.Pool == nil {
		deps.Pool = semaphore.NewWeighted(4)
	}
	return &ConverterFunction{deps: deps, config: cfg, now: time.Now}
}

// conversion is the state owned by one Process call.
type conversion struct {
	docID  string
	doc    pdfdoc.Document
	index  *pageindex.Index
	logCtx *slog.Logger
}

// Process runs the whole pipeline. Any page failure aborts the conversion
// and nothing is written to the catalog.
func (f *ConverterFunction) Process(ctx context.Context, req *models.ConvertRequest) (*models.Booklet, error) {
	// --- 1. Validate input before doing any work ---
	if err := f.validate(req); err != nil {
		return nil, err
	}

	docID := models.DocumentID(req.FileName)
	ctx = logger.WithValue(ctx, logger.DocumentIDKey, docID)
	logCtx := logger.WithContext(ctx).With("fileName", req.FileName)
	logCtx.Info("Starting booklet conversion.", "bytes", len(req.Data))

	// A re-upload may only replace a booklet of the same owner.
	prior, err := f.existing(ctx, docID)
	if err != nil {
		return nil, f.fail(logCtx, wrapAs(err, models.StorageError("failed to look up booklet", err), docID, 0))
	}
	if prior != nil && prior.OwnerID != req.OwnerID {
		return nil, f.fail(logCtx, models.ForbiddenError(docID))
	}

	// --- 2. Open the document ---
	declared, err := pdfdoc.Validate(req.Data)
	if err != nil {
		logCtx.Warn("Structural validation failed, relying on the renderer.", "error", err)
	}
	doc, err := f.deps.Opener.Open(req.Data)
	if err != nil {
		return nil, f.fail(logCtx, models.ExtractionError("failed to open PDF", err).WithPage(docID, 0))
	}
	defer doc.Close()

	pageCount := doc.NumPages()
	if pageCount == 0 {
		return nil, f.fail(logCtx, models.ExtractionError("PDF has no pages", nil).WithPage(docID, 0))
	}
	if declared > 0 && declared != pageCount {
		logCtx.Warn("Page count mismatch between validator and renderer.", "validator", declared, "renderer", pageCount)
	}
	logCtx = logCtx.With("pageCount", pageCount)

	c := &conversion{docID: docID, doc: doc, index: pageindex.New(docID), logCtx: logCtx}

	// --- 3. Text pass, then image pass ---
	if err := f.runPass(ctx, func(ctx context.Context) error { return f.textPass(ctx, c, pageCount) }); err != nil {
		return nil, f.fail(logCtx, err)
	}
	logCtx.Info("Text pass complete.")

	if err := f.runPass(ctx, func(ctx context.Context) error { return f.imagePass(ctx, c, pageCount) }); err != nil {
		return nil, f.fail(logCtx, err)
	}
	logCtx.Info("Image pass complete.")

	if err := c.index.Converged(pageCount); err != nil {
		return nil, f.fail(logCtx, models.ExtractionError("page index did not converge", err).WithPage(docID, 0))
	}

	// --- 4. Assemble and persist ---
	booklet := f.assemble(req, c, pageCount)
	if err := f.deps.Catalog.Put(ctx, booklet); err != nil {
		return nil, f.fail(logCtx, wrapAs(err, models.StorageError("failed to persist booklet", err), docID, 0))
	}
	if cover, ok := c.index.Get(1); ok {
		booklet.CoverImg = cover.Elements.ImgURL
	}
	if prior != nil && prior.NumberOfPages > pageCount {
		f.pruneStale(ctx, logCtx, docID, pageCount+1, prior.NumberOfPages)
	}

	logCtx.Info("Booklet conversion complete.")
	return booklet, nil
}

func (f *ConverterFunction) existing(ctx context.Context, docID string) (*models.Booklet, error) {
	b, err := f.deps.Catalog.Get(ctx, docID)
	if models.IsKind(err, models.KindNotFound) {
		return nil, nil
	}
	return b, err
}

// pruneStale removes the objects of pages a shorter re-upload no longer has.
// The new booklet is already persisted, so failures are only logged.
func (f *ConverterFunction) pruneStale(ctx context.Context, logCtx *slog.Logger, docID string, from, to int) {
	for page := from; page <= to; page++ {
		for _, key := range []string{
			blobstore.ImageKey(docID, page),
			blobstore.TextKey(docID, page),
			blobstore.NarrationKey(docID, page),
			blobstore.DescriptionNarrationKey(docID, page),
		} {
			if err := f.deps.Blobs.DeletePrefix(ctx, key); err != nil {
				logCtx.Warn("Failed to remove stale page object.", "key", key, "error", err)
			}
		}
	}
	logCtx.Info("Removed objects of dropped pages.", "fromPage", from, "toPage", to)
}

func (f *ConverterFunction) validate(req *models.ConvertRequest) error {
	if req == nil || len(req.Data) == 0 {
		return models.InputValidationError("empty upload", nil)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return models.InputValidationError("missing file name", nil)
	}
	mediaType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil || mediaType != pdfdoc.ContentType {
		return models.InputValidationError(fmt.Sprintf("unsupported content type %q", req.ContentType), nil)
	}
	if f.config.MaxUploadBytes > 0 && int64(len(req.Data)) > f.config.MaxUploadBytes {
		return models.InputValidationError("upload exceeds the maximum size", nil)
	}
	if !pdfdoc.LooksLikePDF(req.Data) {
		return models.InputValidationError("file is not a PDF", nil)
	}
	return nil
}

// runPass offloads one pass to the shared worker pool and waits for it.
func (f *ConverterFunction) runPass(ctx context.Context, pass func(ctx context.Context) error) error {
	if err := f.deps.Pool.Acquire(ctx, 1); err != nil {
		return err
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer f.deps.Pool.Release(1)
		return pass(gctx)
	})
	return eg.Wait()
}

func (f *ConverterFunction) textPass(ctx context.Context, c *conversion, pageCount int) error {
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := f.textPage(ctx, c, page)
		if err != nil {
			return err
		}
		if _, err := c.index.MergeText(page, result); err != nil {
			return models.ExtractionError("failed to merge text result", err).WithPage(c.docID, page)
		}
	}
	return nil
}

func (f *ConverterFunction) textPage(ctx context.Context, c *conversion, page int) (pageindex.TextResult, error) {
	raw, err := c.doc.PageText(page)
	if err != nil {
		return pageindex.TextResult{}, models.ExtractionError("failed to extract page text", err).WithPage(c.docID, page)
	}
	cleaned, err := textclean.Clean(raw)
	if err != nil {
		return pageindex.TextResult{}, wrapAs(err, models.CleaningError("failed to clean page text", err), c.docID, page)
	}
	if cleaned == "" {
		c.logCtx.Debug("Page has no text.", "pageNumber", page)
		return pageindex.TextResult{}, nil
	}

	lang, confidence := f.deps.Detector.Detect(cleaned)

	var audio []byte
	err = f.call(ctx, func(ctx context.Context) error {
		var err error
		audio, err = f.deps.Narrator.Synthesize(ctx, cleaned, narration.Default)
		return err
	})
	if err != nil {
		return pageindex.TextResult{}, wrapAs(err, models.SynthesisError("failed to narrate page text", err), c.docID, page)
	}

	ttsKey := blobstore.NarrationKey(c.docID, page)
	txtKey := blobstore.TextKey(c.docID, page)
	if err := f.put(ctx, ttsKey, audio, blobstore.ContentTypeMP3); err != nil {
		return pageindex.TextResult{}, atPage(err, c.docID, page)
	}
	if err := f.put(ctx, txtKey, []byte(cleaned), blobstore.ContentTypeText); err != nil {
		return pageindex.TextResult{}, atPage(err, c.docID, page)
	}
	ttsURL, err := f.sign(ctx, ttsKey)
	if err != nil {
		return pageindex.TextResult{}, atPage(err, c.docID, page)
	}
	txtURL, err := f.sign(ctx, txtKey)
	if err != nil {
		return pageindex.TextResult{}, atPage(err, c.docID, page)
	}

	return pageindex.TextResult{
		Text:         &cleaned,
		Lang:         lang,
		LangAccuracy: confidence,
		TxtFileKey:   txtKey,
		TTSKey:       ttsKey,
		TxtFileURL:   txtURL,
		TTSURL:       ttsURL,
		CreateTxtTTS: false,
	}, nil
}

func (f *ConverterFunction) imagePass(ctx context.Context, c *conversion, pageCount int) error {
	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := f.imagePage(ctx, c, page)
		if err != nil {
			return err
		}
		if _, err := c.index.MergeImage(page, result); err != nil {
			return models.ExtractionError("failed to merge image result", err).WithPage(c.docID, page)
		}
	}
	return nil
}

// descriptionLanguage picks the prompt language from the text pass result.
func descriptionLanguage(page models.Page, ok bool) string {
	if ok && page.Elements.Lang == "en" {
		return "en"
	}
	return "es"
}

func (f *ConverterFunction) imagePage(ctx context.Context, c *conversion, page int) (pageindex.ImageResult, error) {
	png, err := c.doc.PageImage(page, f.config.DPI)
	if err != nil {
		return pageindex.ImageResult{}, models.ExtractionError("failed to render page", err).WithPage(c.docID, page)
	}

	imgKey := blobstore.ImageKey(c.docID, page)
	if err := f.put(ctx, imgKey, png, blobstore.ContentTypePNG); err != nil {
		return pageindex.ImageResult{}, atPage(err, c.docID, page)
	}
	imgURL, err := f.sign(ctx, imgKey)
	if err != nil {
		return pageindex.ImageResult{}, atPage(err, c.docID, page)
	}
	result := pageindex.ImageResult{ImgKey: imgKey, ImgURL: imgURL, CreateImgTTS: true}

	lang := descriptionLanguage(c.index.Get(page))

	var description string
	var produced bool
	err = f.call(ctx, func(ctx context.Context) error {
		var err error
		description, produced, err = f.deps.Describer.Describe(ctx, f.imageRef(imgKey, png), lang)
		return err
	})
	if err != nil {
		return pageindex.ImageResult{}, wrapAs(err, models.DescriptionError("failed to describe page image", err), c.docID, page)
	}
	if !produced {
		return result, nil
	}

	description = models.Truncate(description, f.config.MaxDescription)
	descLang, descConfidence := f.deps.Detector.Detect(description)

	var audio []byte
	err = f.call(ctx, func(ctx context.Context) error {
		var err error
		audio, err = f.deps.Narrator.Synthesize(ctx, description, narration.Female)
		return err
	})
	if err != nil {
		return pageindex.ImageResult{}, wrapAs(err, models.SynthesisError("failed to narrate image description", err), c.docID, page)
	}

	ttsKey := blobstore.DescriptionNarrationKey(c.docID, page)
	if err := f.put(ctx, ttsKey, audio, blobstore.ContentTypeMP3); err != nil {
		return pageindex.ImageResult{}, atPage(err, c.docID, page)
	}
	ttsURL, err := f.sign(ctx, ttsKey)
	if err != nil {
		return pageindex.ImageResult{}, atPage(err, c.docID, page)
	}

	result.ImgDescription = &description
	result.ImgDescLang = descLang
	result.ImgDescLangAccuracy = descConfidence
	result.ImgTTSKey = ttsKey
	result.ImgTTSURL = ttsURL
	return result, nil
}

func (f *ConverterFunction) assemble(req *models.ConvertRequest, c *conversion, pageCount int) *models.Booklet {
	now := f.now().Unix()
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.FileName
	}
	return &models.Booklet{
		DocID:          c.docID,
		DocName:        req.FileName,
		DocTitle:       title,
		DocDescription: models.Truncate(req.Description, models.MaxDescriptionLength),
		OwnerID:        req.OwnerID,
		CreatedAt:      now,
		ModifyAt:       now,
		NumberOfPages:  pageCount,
		CoverImgKey:    blobstore.CoverKey(c.docID),
		IsPublished:    false,
		TTSReady:       true,
		Pages:          c.index.Pages(),
	}
}

func (f *ConverterFunction) imageRef(key string, png []byte) vision.Image {
	if u, ok := f.deps.Blobs.(objectURIer); ok {
		return vision.Image{URI: u.ObjectURI(key), Data: png}
	}
	return vision.Image{Data: png}
}

// call bounds one external call by the configured timeout.
func (f *ConverterFunction) call(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, f.config.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

func (f *ConverterFunction) put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := f.deps.Blobs.Put(ctx, key, data, contentType); err != nil {
		return models.StorageError("failed to upload "+key, err)
	}
	return nil
}

func (f *ConverterFunction) sign(ctx context.Context, key string) (string, error) {
	url, err := f.deps.Blobs.SignedURL(ctx, key)
	if err != nil {
		return "", models.StorageError("failed to sign "+key, err)
	}
	return url, nil
}

func (f *ConverterFunction) fail(logCtx *slog.Logger, err error) error {
	logCtx.Error("Booklet conversion failed.", "error", err)
	return err
}

// wrapAs scopes err to a page. Errors that already carry a kind keep it,
// anything else becomes fallback.
func wrapAs(err error, fallback *models.BookletError, docID string, page int) error {
	var be *models.BookletError
	if errors.As(err, &be) {
		return be.WithPage(docID, page)
	}
	return fallback.WithPage(docID, page)
}

func atPage(err error, docID string, page int) error {
	return wrapAs(err, models.StorageError("storage failure", err), docID, page)
}
