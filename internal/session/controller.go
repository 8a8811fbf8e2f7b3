package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

const (
	DefaultBatchSize         = 5
	DefaultPrefetchThreshold = 2
)

var errEmptyBatch = errors.New("batch contained no new cards")

// BatchGenerator produces cards for a category, skipping excluded words
type BatchGenerator interface {
	GenerateBatch(ctx context.Context, category wordpool.Category, count int, exclude []string) ([]card.StudyCard, error)
}

// ImageEnricher produces an illustration data URL; ok=false means no image
type ImageEnricher interface {
	EnrichImage(ctx context.Context, word, mnemonic string) (string, bool)
}

// Options configures a Controller
type Options struct {
	BatchSize         int           // cards per generation request
	PrefetchThreshold int           // pre-fetch once this few cards remain after the next one
	AdvanceDelay      time.Duration // pause between grading and showing the next card
	ErrorMessage      string
	Logger            *slog.Logger
}

// Controller owns one study session
type Controller struct {
	id        string
	generator BatchGenerator
	images    ImageEnricher // nil disables images
	opts      Options
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	category     wordpool.Category
	epoch        uint64
	state        State
	queue        []card.StudyCard
	imageTried   []bool
	cursor       int
	flipped      bool
	advancing    bool
	pendingBatch uint64 // epoch of the in-flight batch, 0 when none
	pendingImage *imageMarker
	errMsg       string
	stats        Stats
	seen         []card.StudyCard // every card shown, across categories
	seenStart    int              // offset of the current epoch's cards in seen
	listeners    map[int]func(View)
	nextListener int
}

// New creates an idle controller. images may be nil.
func New(ctx context.Context, generator BatchGenerator, images ImageEnricher, opts *Options) *Controller {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.PrefetchThreshold <= 0 {
		o.PrefetchThreshold = DefaultPrefetchThreshold
	}
	if o.ErrorMessage == "" {
		o.ErrorMessage = DefaultErrorMessage
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	return &Controller{
		id:        id,
		generator: generator,
		images:    images,
		opts:      o,
		logger:    o.Logger.With("session", id),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(View)),
	}
}

// ID returns the session identifier used in logs
func (c *Controller) ID() string {
	return c.id
}

// SelectCategory starts a new epoch for category and loads its first batch.
// Any in-flight result from the previous epoch will be discarded.
func (c *Controller) SelectCategory(category wordpool.Category) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.selectCategoryLocked(category)
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) selectCategoryLocked(category wordpool.Category) {
	c.epoch++
	c.category = category
	c.queue = nil
	c.imageTried = nil
	c.cursor = 0
	c.flipped = false
	c.advancing = false
	c.pendingImage = nil
	c.errMsg = ""
	c.state = Loading
	c.seenStart = len(c.seen)

	c.logger.Info("category selected", "category", string(category), "epoch", c.epoch)
	c.startBatchLocked(nil)
}

// RequestMore fetches the next batch in the background unless one is
// already in flight for the current epoch.
func (c *Controller) RequestMore() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNoCategory
	}
	started := c.requestMoreLocked()
	c.mu.Unlock()

	if started {
		c.notify()
	}
	return nil
}

func (c *Controller) requestMoreLocked() bool {
	if c.state == Idle || c.pendingBatch == c.epoch {
		return false
	}
	c.startBatchLocked(card.Words(c.queue))
	return true
}

// startBatchLocked issues one generation call tagged with the current epoch
func (c *Controller) startBatchLocked(exclude []string) {
	epoch, category := c.epoch, c.category
	c.pendingBatch = epoch

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		cards, err := c.generator.GenerateBatch(c.ctx, category, c.opts.BatchSize, exclude)
		c.finishBatch(epoch, cards, err)
	}()
}

func (c *Controller) finishBatch(epoch uint64, cards []card.StudyCard, err error) {
	c.mu.Lock()
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		c.logger.Debug("discarding stale batch", "epoch", epoch)
		return
	}
	c.pendingBatch = 0
	waiting := c.cursor == len(c.queue)

	var fresh []card.StudyCard
	if err == nil {
		fresh = c.dedupeLocked(cards)
		if len(fresh) == 0 {
			err = errEmptyBatch
		}
	}

	if err != nil {
		if waiting {
			c.state = Error
			c.errMsg = c.opts.ErrorMessage
			c.logger.Error("failed to load cards", "category", string(c.category), "queued", len(c.queue), "error", err)
		} else {
			c.logger.Warn("pre-fetch failed", "category", string(c.category), "queued", len(c.queue), "error", err)
		}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.queue = append(c.queue, fresh...)
	c.imageTried = append(c.imageTried, make([]bool, len(fresh))...)
	c.logger.Debug("cards appended", "added", len(fresh), "dropped", len(cards)-len(fresh), "queued", len(c.queue))

	if waiting {
		c.state = Ready
		c.flipped = false
		c.markSeenLocked()
		c.ensureImageLocked()
	}
	c.mu.Unlock()

	c.notify()
}

// dedupeLocked drops cards whose word is already queued or repeated within
// the batch itself
func (c *Controller) dedupeLocked(cards []card.StudyCard) []card.StudyCard {
	seen := lo.SliceToMap(c.queue, func(sc card.StudyCard) (string, struct{}) {
		return sc.Word, struct{}{}
	})
	return lo.Filter(cards, func(sc card.StudyCard, _ int) bool {
		if _, dup := seen[sc.Word]; dup {
			return false
		}
		seen[sc.Word] = struct{}{}
		return true
	})
}

// Grade records the learner's answer for the visible card and moves on
func (c *Controller) Grade(known bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Ready || c.cursor >= len(c.queue) || c.advancing {
		c.mu.Unlock()
		return ErrNotReady
	}

	c.stats.record(known)
	c.flipped = false
	c.logger.Debug("card graded", "word", c.queue[c.cursor].Word, "known", known, "index", c.cursor)

	next := c.cursor + 1
	if next >= len(c.queue)-c.opts.PrefetchThreshold {
		c.requestMoreLocked()
	}

	if c.opts.AdvanceDelay > 0 {
		c.advancing = true
		c.scheduleAdvanceLocked()
	} else {
		c.advanceLocked()
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) scheduleAdvanceLocked() {
	epoch := c.epoch
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTimer(c.opts.AdvanceDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-c.ctx.Done():
			return
		}

		c.mu.Lock()
		if epoch != c.epoch || c.closed || !c.advancing {
			c.mu.Unlock()
			return
		}
		c.advanceLocked()
		c.mu.Unlock()
		c.notify()
	}()
}

func (c *Controller) advanceLocked() {
	c.advancing = false
	c.cursor++
	if c.cursor < len(c.queue) {
		c.markSeenLocked()
		c.ensureImageLocked()
		return
	}

	// Past the last card: wait for the pending batch or start one
	c.state = Loading
	c.requestMoreLocked()
}

// markSeenLocked records the visible card the first time it is shown.
// The cursor only moves forward, so the current epoch's entries in seen
// line up with queue indexes.
func (c *Controller) markSeenLocked() {
	if c.cursor != len(c.seen)-c.seenStart {
		return
	}
	c.seen = append(c.seen, c.queue[c.cursor])
}

// Retry replays the failed load: the first batch when nothing was ever
// loaded, otherwise the next batch.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Error {
		c.mu.Unlock()
		return ErrNotInError
	}

	if len(c.queue) == 0 {
		c.selectCategoryLocked(c.category)
	} else {
		c.state = Loading
		c.errMsg = ""
		c.requestMoreLocked()
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Flip toggles between the front and back of the visible card
func (c *Controller) Flip() error {
	c.mu.Lock()
	if c.state != Ready || c.cursor >= len(c.queue) {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.flipped = !c.flipped
	c.mu.Unlock()

	c.notify()
	return nil
}

// ensureImageLocked starts the image request for the visible card if it has
// none, was never attempted and no other image request is tracked
func (c *Controller) ensureImageLocked() {
	if c.images == nil || c.closed || c.cursor >= len(c.queue) {
		return
	}
	if c.queue[c.cursor].HasImage() || c.imageTried[c.cursor] || c.pendingImage != nil {
		return
	}

	marker := imageMarker{epoch: c.epoch, index: c.cursor}
	c.pendingImage = &marker
	c.imageTried[c.cursor] = true
	word, mnemonic := c.queue[c.cursor].Word, c.queue[c.cursor].Mnemonic

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		url, ok := c.images.EnrichImage(c.ctx, word, mnemonic)
		c.finishImage(marker, word, url, ok)
	}()
}

func (c *Controller) finishImage(marker imageMarker, word, url string, ok bool) {
	c.mu.Lock()
	if marker.epoch != c.epoch || c.closed {
		c.mu.Unlock()
		c.logger.Debug("discarding stale image", "word", word, "epoch", marker.epoch)
		return
	}
	if c.pendingImage != nil && *c.pendingImage == marker {
		c.pendingImage = nil
	}

	if ok && marker.index < len(c.queue) && !c.queue[marker.index].HasImage() {
		c.queue[marker.index].Image = url
		if pos := c.seenStart + marker.index; pos < len(c.seen) {
			c.seen[pos].Image = url
		}
	} else if !ok {
		c.logger.Warn("no image for card", "word", word)
	}

	// The learner may have moved on while the image was generated
	c.ensureImageLocked()
	c.mu.Unlock()

	c.notify()
}

// View returns a snapshot of the current state
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		State:        c.state,
		Category:     c.category,
		Index:        c.cursor,
		Total:        len(c.queue),
		Flipped:      c.flipped,
		BatchLoading: c.pendingBatch != 0 && c.pendingBatch == c.epoch,
		Waiting:      c.state != Idle && c.cursor == len(c.queue),
		Stats:        c.stats,
	}
	if c.state == Error {
		v.Error = c.errMsg
	}
	if c.cursor < len(c.queue) && c.state == Ready {
		sc := c.queue[c.cursor]
		v.Card = &sc
		v.ImageLoading = c.pendingImage != nil && c.pendingImage.index == c.cursor
	}
	return v
}

// Stats returns the grading statistics
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Cards returns a copy of the queue in order
func (c *Controller) Cards() []card.StudyCard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]card.StudyCard(nil), c.queue...)
}

// Seen returns every card shown during the session in the order it was
// first displayed, including cards from earlier categories
func (c *Controller) Seen() []card.StudyCard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]card.StudyCard(nil), c.seen...)
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs outside the controller lock and must not block for long. The
// returned function removes the listener.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	v := c.viewLocked()
	listeners := lo.Values(c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// Wait blocks until all in-flight requests and timers have finished
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels outstanding requests and waits for their goroutines
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
