package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"mp3index/internal/blobstore"
	"mp3index/internal/store"
)

func validInput(size int64) SubmitInput {
	return SubmitInput{
		FileName:      "song.mp3",
		MediaType:     "audio/mpeg",
		SizeBytes:     size,
		RecipientName: "Alex",
		MemoryText:    "miss you",
	}
}

func TestSubmitRoundTrip(t *testing.T) {
	fx := newServiceFixture(t, 0)
	ctx := context.Background()
	payload := []byte("mp3 bytes")

	created, err := fx.service.Submit(ctx, validInput(int64(len(payload))), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}
	if !isPalette(created.LabelColor) {
		t.Fatalf("expected palette color, got %q", created.LabelColor)
	}
	if created.FileSize != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), created.FileSize)
	}
	if !created.Timestamp.Equal(fixedNow.Truncate(time.Millisecond)) {
		t.Fatalf("expected timestamp %v, got %v", fixedNow, created.Timestamp)
	}
	if !strings.HasPrefix(created.AudioData, "data:") {
		t.Fatalf("expected inline data url, got %q", created.AudioData)
	}

	got, err := fx.gallery.GetOne(ctx, "1")
	if err != nil {
		t.Fatalf("get one: %v", err)
	}
	if got.FileName != "song.mp3" || got.RecipientName != "Alex" || got.Memory != "miss you" {
		t.Fatalf("unexpected memory: %+v", got)
	}
	if got.LabelColor != created.LabelColor || got.AudioData != created.AudioData {
		t.Fatalf("lookup differs from created record: %+v vs %+v", got, created)
	}
}

func TestSubmitTrimsTextFields(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(3)
	in.RecipientName = "  Alex "
	in.MemoryText = "\tmiss you\n"

	created, err := fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.RecipientName != "Alex" || created.Memory != "miss you" {
		t.Fatalf("expected trimmed fields, got %q %q", created.RecipientName, created.Memory)
	}
}

func TestSubmitMissingRecipientHasNoSideEffects(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(3)
	in.RecipientName = "   "

	_, err := fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeMissingRequired)

	if fx.blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", fx.blobs.Len())
	}
	count, _ := fx.store.CountMemories(context.Background())
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestSubmitMissingMemoryText(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(3)
	in.MemoryText = ""

	_, err := fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeMissingRequired)
	if fx.blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", fx.blobs.Len())
	}
}

func TestSubmitRejectsNonMediaBeforeWriting(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(3)
	in.MediaType = "text/plain"
	// Missing recipient too: the file type check comes first.
	in.RecipientName = ""

	_, err := fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeInvalidFileType)
	if fx.blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", fx.blobs.Len())
	}
}

func TestSubmitRejectsMissingContent(t *testing.T) {
	fx := newServiceFixture(t, 0)

	_, err := fx.service.Submit(context.Background(), validInput(3), nil)
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeInvalidFileType)

	_, err = fx.service.Submit(context.Background(), validInput(0), strings.NewReader(""))
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeInvalidFileType)
}

func TestSubmitAcceptsVideo(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(4)
	in.FileName = "clip.webm"
	in.MediaType = "video/webm; codecs=vp9"

	created, err := fx.service.Submit(context.Background(), in, strings.NewReader("webm"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.MediaType != "video/webm" {
		t.Fatalf("expected normalized media type, got %q", created.MediaType)
	}
}

func TestSubmitDeclaredSizeTooLarge(t *testing.T) {
	fx := newServiceFixture(t, 8)

	_, err := fx.service.Submit(context.Background(), validInput(9), strings.NewReader("123456789"))
	requireAPIError(t, err, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge)
	if fx.blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", fx.blobs.Len())
	}
}

func TestSubmitStreamLongerThanLimitIsDiscarded(t *testing.T) {
	fx := newServiceFixture(t, 8)

	// Declared size lies; the stream itself is over the bound.
	_, err := fx.service.Submit(context.Background(), validInput(4), strings.NewReader("0123456789abcdef"))
	requireAPIError(t, err, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge)
	if fx.blobs.Len() != 0 {
		t.Fatalf("expected oversize blob to be removed, got %d", fx.blobs.Len())
	}
	count, _ := fx.store.CountMemories(context.Background())
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestSubmitLabelColor(t *testing.T) {
	fx := newServiceFixture(t, 0)

	in := validInput(3)
	in.LabelColor = " #2ECC71 "
	created, err := fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.LabelColor != "#2ecc71" {
		t.Fatalf("expected supplied color, got %q", created.LabelColor)
	}

	in.LabelColor = "#123456"
	_, err = fx.service.Submit(context.Background(), in, strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusBadRequest, ErrCodeInvalidLabelColor)
	if fx.blobs.Len() != 1 {
		t.Fatalf("expected only the first blob, got %d", fx.blobs.Len())
	}
}

func TestSubmitRandomColorIsDeterministicWithSeed(t *testing.T) {
	first := newServiceFixture(t, 0)
	second := newServiceFixture(t, 0)

	for i := 0; i < 5; i++ {
		a, err := first.service.Submit(context.Background(), validInput(3), strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("submit first: %v", err)
		}
		b, err := second.service.Submit(context.Background(), validInput(3), strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("submit second: %v", err)
		}
		if a.LabelColor != b.LabelColor {
			t.Fatalf("submission %d: colors differ with same seed: %s vs %s", i, a.LabelColor, b.LabelColor)
		}
	}
}

func TestSubmitInsertFailureRollsBackBlob(t *testing.T) {
	fx := newServiceFixture(t, 0)
	fx.store.insertErr = errors.New("disk full")

	_, err := fx.service.Submit(context.Background(), validInput(3), strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusInternalServerError, ErrCodeStoreFailure)

	if fx.blobs.Len() != 0 {
		t.Fatalf("expected blob rollback, got %d blobs", fx.blobs.Len())
	}
	if list := fx.gallery.ListAll(context.Background()); len(list) != 0 {
		t.Fatalf("expected no listed memories, got %d", len(list))
	}
}

func TestSubmitCancelledContextWritesNothing(t *testing.T) {
	fx := newServiceFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.service.Submit(ctx, validInput(3), strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusInternalServerError, ErrCodeStoreFailure)
	if fx.blobs.Len() != 0 {
		t.Fatalf("expected no blobs, got %d", fx.blobs.Len())
	}
}

func TestSubmitBlobFailureSkipsMetadata(t *testing.T) {
	st := &faultyStore{MemoryStore: store.NewMemStore()}
	blobs := &failingBlobs{BlobStore: blobstore.NewMemStore(nil, nil), putErr: errors.New("disk full")}
	svc := NewMemoryService(st, blobs, newMemoryMapper(blobs, ""), MemoryServiceOptions{Logger: testLogger()})

	_, err := svc.Submit(context.Background(), validInput(3), strings.NewReader("abc"))
	requireAPIError(t, err, http.StatusInternalServerError, ErrCodeStoreFailure)

	if blobs.putCalls != 1 {
		t.Fatalf("expected one put attempt, got %d", blobs.putCalls)
	}
	if st.insertCalls != 0 {
		t.Fatalf("expected metadata store untouched, got %d inserts", st.insertCalls)
	}
	if n, _ := st.CountMemories(context.Background()); n != 0 {
		t.Fatalf("expected no memories, got %d", n)
	}
}

func TestSubmitWithoutExtensionKeepsMediaType(t *testing.T) {
	fx := newServiceFixture(t, 0)
	in := validInput(16)
	in.FileName = "voice-note"

	created, err := fx.service.Submit(context.Background(), in, strings.NewReader(strings.Repeat("a", 16)))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.MediaType != "audio/mpeg" {
		t.Fatalf("expected audio/mpeg record, got %q", created.MediaType)
	}
	if !strings.HasPrefix(created.AudioData, "data:audio/mpeg;base64,") {
		t.Fatalf("expected audio/mpeg data url, got prefix %q", created.AudioData[:min(len(created.AudioData), 40)])
	}
}

func TestSubmitUniqueIDs(t *testing.T) {
	fx := newServiceFixture(t, 0)
	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		created, err := fx.service.Submit(context.Background(), validInput(3), strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if seen[created.ID] {
			t.Fatalf("duplicate id %d", created.ID)
		}
		seen[created.ID] = true
	}
}
