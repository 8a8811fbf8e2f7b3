package study

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/linkmemory/internal/card"
	"codeberg.org/snonux/linkmemory/internal/session"
	"codeberg.org/snonux/linkmemory/internal/testutil"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// lockedBuffer lets the test read output while the terminal writes it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	t     *testing.T
	ctrl  *session.Controller
	gen   *testutil.MockBatchGenerator
	input *io.PipeWriter
	out   *lockedBuffer
	done  chan error
}

func startTerminal(t *testing.T, opts *Options) *harness {
	t.Helper()
	gen := testutil.NewBlockingBatchGenerator()
	ctrl := session.New(context.Background(), gen, nil, nil)
	t.Cleanup(ctrl.Close)

	pr, pw := io.Pipe()
	h := &harness{t: t, ctrl: ctrl, gen: gen, input: pw, out: &lockedBuffer{}, done: make(chan error, 1)}

	term := New(ctrl, pr, h.out, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { h.done <- term.Run(ctx) }()
	return h
}

func (h *harness) send(line string) {
	h.t.Helper()
	_, err := io.WriteString(h.input, line+"\n")
	require.NoError(h.t, err)
}

func (h *harness) waitOutput(substr string) {
	h.t.Helper()
	testutil.Eventually(h.t, 2*time.Second, func() bool {
		return strings.Contains(h.out.String(), substr)
	}, "output never contained "+substr)
}

func (h *harness) answerBatch(words ...string) {
	h.t.Helper()
	select {
	case p := <-h.gen.Pending:
		p.Respond(testutil.MakeCards(words...), nil)
	case <-time.After(2 * time.Second):
		h.t.Fatal("expected a batch request")
	}
}

func (h *harness) failBatch() {
	h.t.Helper()
	select {
	case p := <-h.gen.Pending:
		p.Respond(nil, errors.New("offline"))
	case <-time.After(2 * time.Second):
		h.t.Fatal("expected a batch request")
	}
}

func (h *harness) finish() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("terminal did not exit")
		return nil
	}
}

func TestBannerListsCategories(t *testing.T) {
	h := startTerminal(t, nil)
	h.waitOutput("Commands:")

	out := h.out.String()
	catalog := wordpool.NewCatalog()
	for _, c := range wordpool.Categories() {
		assert.Contains(t, out, c.DisplayName())
		assert.Contains(t, out, fmt.Sprintf("(%d words)", catalog.Size(c)))
	}

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestStudyLoop(t *testing.T) {
	h := startTerminal(t, nil)

	h.send("c henan-zsb")
	h.waitOutput("Loading 河南专升本英语 words")
	h.answerBatch("abandon", "absolute", "absorb", "abstract", "academic")
	h.waitOutput("[1/5] abandon")

	h.send("f")
	h.waitOutput("Mnemonic:   abandon 的记忆故事")

	h.send("k")
	h.waitOutput("[2/5] absolute")

	h.send("u")
	h.waitOutput("[3/5] absorb")

	h.send("s")
	h.waitOutput("Learned: 2  Streak: 0  Mastered: 1")

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestInitialCategory(t *testing.T) {
	h := startTerminal(t, &Options{InitialCategory: wordpool.CET4})
	h.waitOutput("Loading 大学英语四级 words")

	p := <-h.gen.Pending
	assert.Equal(t, wordpool.CET4, p.Category)
	p.Respond(testutil.MakeCards("ability"), nil)
	h.waitOutput("[1/1] ability")

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestErrorAndRetry(t *testing.T) {
	h := startTerminal(t, nil)

	h.send("c gaokao")
	h.failBatch()
	h.waitOutput(session.DefaultErrorMessage)
	h.waitOutput("Type r to retry.")

	h.send("r")
	h.answerBatch("ability")
	h.waitOutput("[1/1] ability")

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestCommandErrors(t *testing.T) {
	h := startTerminal(t, nil)

	h.send("f")
	h.waitOutput("No card is ready yet")
	h.send("r")
	h.waitOutput("Nothing to retry")
	h.send("c toefl")
	h.waitOutput("unknown category")
	h.send("z")
	h.waitOutput(`Unknown command "z"`)
	h.send("x")
	h.waitOutput("Export is not configured")

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestExport(t *testing.T) {
	var exported []card.StudyCard
	h := startTerminal(t, &Options{Export: func(cards []card.StudyCard) (string, error) {
		exported = cards
		return "/tmp/deck.apkg", nil
	}})

	h.send("x")
	h.waitOutput("Nothing to export yet")

	h.send("c cet6")
	h.answerBatch("abundant", "accelerate")
	h.waitOutput("[1/2] abundant")

	h.send("x")
	h.waitOutput("Exported 1 cards to /tmp/deck.apkg")
	require.Len(t, exported, 1)
	assert.Equal(t, "abundant", exported[0].Word)

	h.send("k")
	h.waitOutput("[2/2] accelerate")
	h.send("x")
	h.waitOutput("Exported 2 cards to /tmp/deck.apkg")
	require.Len(t, exported, 2)
	assert.Equal(t, "accelerate", exported[1].Word)

	h.send("q")
	assert.NoError(t, h.finish())
}

func TestEndOfInputQuits(t *testing.T) {
	h := startTerminal(t, nil)
	require.NoError(t, h.input.Close())
	assert.NoError(t, h.finish())
}

func TestQuitReleasesInputReader(t *testing.T) {
	gen := testutil.NewBlockingBatchGenerator()
	ctrl := session.New(context.Background(), gen, nil, nil)
	defer ctrl.Close()

	term := New(ctrl, strings.NewReader("q\nk\nk\n"), io.Discard, nil)
	require.NoError(t, term.Run(context.Background()))

	select {
	case <-term.readerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("input goroutine still running after quit")
	}
}

func TestContextCancelStops(t *testing.T) {
	gen := testutil.NewBlockingBatchGenerator()
	ctrl := session.New(context.Background(), gen, nil, nil)
	defer ctrl.Close()

	pr, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(ctrl, pr, io.Discard, nil).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("terminal ignored cancellation")
	}
}

func TestImageReadyNotice(t *testing.T) {
	images := testutil.NewBlockingImageEnricher()
	gen := testutil.NewBlockingBatchGenerator()
	ctrl := session.New(context.Background(), gen, images, nil)
	defer ctrl.Close()

	out := &lockedBuffer{}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- New(ctrl, pr, out, nil).Run(context.Background()) }()

	require.NoError(t, ctrl.SelectCategory(wordpool.Gaokao))
	(<-gen.Pending).Respond(testutil.MakeCards("ability"), nil)
	p := <-images.Pending
	testutil.Eventually(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), "image: loading")
	}, "image status not shown")

	p.Respond(testutil.ImageDataURL("ability"), true)
	testutil.Eventually(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), "[image ready]")
	}, "image notice not shown")

	require.NoError(t, pw.Close())
	<-done
}
