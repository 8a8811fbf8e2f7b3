package study

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/session"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// Controller is the part of a study session the terminal drives
type Controller interface {
	SelectCategory(category wordpool.Category) error
	Grade(known bool) error
	Flip() error
	Retry() error
	View() session.View
	Seen() []card.StudyCard
	Subscribe(fn func(session.View)) func()
}

// ExportFunc writes the studied cards somewhere and returns the path
type ExportFunc func(cards []card.StudyCard) (string, error)

// Options configures the terminal
type Options struct {
	Catalog         *wordpool.Catalog
	InitialCategory wordpool.Category // selected before the first prompt when set
	Export          ExportFunc        // enables the x command
}

// Terminal renders a session to out and reads commands from in
type Terminal struct {
	ctrl Controller
	opts Options
	in   io.Reader

	readerDone chan struct{} // closed once the input goroutine exits

	mu   sync.Mutex // guards out and last
	out  io.Writer
	last renderKey
}

// renderKey holds what is visible; a change triggers a redraw
type renderKey struct {
	state    session.State
	category wordpool.Category
	index    int
	flipped  bool
	hasImage bool
	err      string
}

func keyOf(v session.View) renderKey {
	k := renderKey{
		state:    v.State,
		category: v.Category,
		index:    v.Index,
		flipped:  v.Flipped,
		err:      v.Error,
	}
	if v.Card != nil {
		k.hasImage = v.Card.HasImage()
	}
	return k
}

// New creates a terminal front-end
func New(ctrl Controller, in io.Reader, out io.Writer, opts *Options) *Terminal {
	t := &Terminal{ctrl: ctrl, in: in, out: out}
	if opts != nil {
		t.opts = *opts
	}
	if t.opts.Catalog == nil {
		t.opts.Catalog = wordpool.NewCatalog()
	}
	return t
}

// Run processes commands until q, end of input or ctx is done
func (t *Terminal) Run(ctx context.Context) error {
	unsubscribe := t.ctrl.Subscribe(t.onChange)
	defer unsubscribe()

	t.printf("LinkMemory - vocabulary through mnemonic stories\n\n")
	t.printCategories()
	t.printHelp()

	if t.opts.InitialCategory != "" {
		if err := t.ctrl.SelectCategory(t.opts.InitialCategory); err != nil {
			return err
		}
	}

	stop := make(chan struct{})
	defer close(stop)

	lines := make(chan string)
	readErr := make(chan error, 1)
	t.readerDone = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}(t.readerDone)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if quit := t.handle(line); quit {
				t.printStats()
				return nil
			}
		}
	}
}

// handle executes one command line and reports whether to quit
func (t *Terminal) handle(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "f":
		err = t.ctrl.Flip()
	case "k":
		err = t.ctrl.Grade(true)
	case "u":
		err = t.ctrl.Grade(false)
	case "r":
		err = t.ctrl.Retry()
	case "c":
		if len(fields) < 2 {
			t.printCategories()
			return false
		}
		err = t.selectCategory(strings.Join(fields[1:], " "))
	case "s":
		t.printStats()
	case "x":
		t.export()
	case "h", "?":
		t.printHelp()
	case "q":
		return true
	default:
		t.printf("Unknown command %q (h for help)\n", fields[0])
	}

	if err != nil {
		t.printf("%s\n", describe(err))
	}
	return false
}

func (t *Terminal) selectCategory(name string) error {
	category, err := wordpool.ParseCategory(name)
	if err != nil {
		return err
	}
	return t.ctrl.SelectCategory(category)
}

func (t *Terminal) export() {
	if t.opts.Export == nil {
		t.printf("Export is not configured\n")
		return
	}
	cards := t.ctrl.Seen()
	if len(cards) == 0 {
		t.printf("Nothing to export yet\n")
		return
	}
	path, err := t.opts.Export(cards)
	if err != nil {
		t.printf("Export failed: %v\n", err)
		return
	}
	t.printf("Exported %d cards to %s\n", len(cards), path)
}

// describe turns controller errors into short hints
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNotReady):
		return "No card is ready yet"
	case errors.Is(err, session.ErrNotInError):
		return "Nothing to retry"
	case errors.Is(err, session.ErrNoCategory):
		return "Choose a category first (c <id>)"
	case errors.Is(err, wordpool.ErrUnknownCategory):
		return fmt.Sprintf("%v (c lists the categories)", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// onChange redraws when the visible part of the session changed. It reads a
// fresh view since listener calls from different goroutines may interleave.
func (t *Terminal) onChange(session.View) {
	v := t.ctrl.View()

	t.mu.Lock()
	defer t.mu.Unlock()

	key := keyOf(v)
	if key == t.last {
		return
	}
	prev := t.last
	t.last = key

	imageOnly := prev.state == session.Ready && key.state == session.Ready &&
		prev.index == key.index && prev.flipped == key.flipped &&
		!prev.hasImage && key.hasImage
	if imageOnly {
		fmt.Fprintf(t.out, "  [image ready]\n")
		return
	}
	t.renderLocked(v)
}

func (t *Terminal) renderLocked(v session.View) {
	switch v.State {
	case session.Loading:
		fmt.Fprintf(t.out, "\nLoading %s words...\n", v.Category.DisplayName())
	case session.Error:
		fmt.Fprintf(t.out, "\n%s\nType r to retry.\n", v.Error)
	case session.Ready:
		if v.Card != nil {
			t.renderCardLocked(v)
		}
	}
}

func (t *Terminal) renderCardLocked(v session.View) {
	sc := v.Card
	fmt.Fprintf(t.out, "\n[%d/%d] %s  %s  (%s)\n", v.Index+1, v.Total, sc.Word, sc.Phonetic, sc.Difficulty)
	if !v.Flipped {
		status := "none"
		switch {
		case sc.HasImage():
			status = "ready"
		case v.ImageLoading:
			status = "loading"
		}
		fmt.Fprintf(t.out, "  image: %s\n  f: flip  k: known  u: unknown\n", status)
		return
	}
	fmt.Fprintf(t.out, "  Definition: %s\n", sc.Definition)
	fmt.Fprintf(t.out, "  Mnemonic:   %s\n", sc.Mnemonic)
	fmt.Fprintf(t.out, "  Example:    %s\n", sc.ExampleSentence)
	fmt.Fprintf(t.out, "              %s\n", sc.ExampleTranslation)
}

func (t *Terminal) printCategories() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "Categories:\n")
	for _, c := range wordpool.Categories() {
		fmt.Fprintf(t.out, "  %-10s %s (%d words)\n", c, c.DisplayName(), t.opts.Catalog.Size(c))
	}
}

func (t *Terminal) printHelp() {
	t.printf(`Commands:
  c <id>  choose a category
  f       flip the card
  k / u   known / unknown
  r       retry after an error
  s       show statistics
  x       export studied cards to Anki
  q       quit
`)
}

func (t *Terminal) printStats() {
	s := t.ctrl.View().Stats
	t.printf("Learned: %d  Streak: %d  Mastered: %d\n", s.TotalLearned, s.CurrentStreak, s.MasteredCount)
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}
