package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"linkpeek/internal/download"
	"linkpeek/internal/inspect"
	"linkpeek/internal/media"
	"linkpeek/internal/relay"
)

func urlEntity(offset, length int) tgbotapi.MessageEntity {
	return tgbotapi.MessageEntity{Type: "url", Offset: offset, Length: length}
}

func TestExtractURLs(t *testing.T) {
	text := "see https://example.com/a?x=1 and https://example.org"
	urls, err := extractURLs(text, []tgbotapi.MessageEntity{
		urlEntity(4, 25),
		{Type: "bold", Offset: 30, Length: 3},
		urlEntity(34, 19),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://example.com/a?x=1", "https://example.org"}
	if len(urls) != 2 || urls[0] != want[0] || urls[1] != want[1] {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestExtractURLsCountsUTF16Units(t *testing.T) {
	// The emoji occupies two UTF-16 units, shifting the entity offset past
	// the byte position of the URL.
	text := "🎵 https://example.com"
	urls, err := extractURLs(text, []tgbotapi.MessageEntity{urlEntity(3, 19)})
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com" {
		t.Fatalf("urls = %v", urls)
	}
}

func TestExtractURLsOutOfRange(t *testing.T) {
	urls, err := extractURLs("short", []tgbotapi.MessageEntity{urlEntity(2, 50)})
	if err == nil {
		t.Fatal("expected extraction error for out-of-range entity")
	}
	if urls != nil {
		t.Fatalf("partial list returned alongside error: %v", urls)
	}
}

func TestExtractURLsNoEntities(t *testing.T) {
	urls, err := extractURLs("no links here", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Fatalf("urls = %v", urls)
	}
}

type testTransport struct {
	texts  []string
	codes  []string
	photos []string
	audios []string
	fail   bool
}

func (tt *testTransport) SendText(_ context.Context, text string) error {
	if tt.fail {
		return errors.New("send failed")
	}
	tt.texts = append(tt.texts, text)
	return nil
}

func (tt *testTransport) SendCode(_ context.Context, header, _, code string) error {
	tt.codes = append(tt.codes, header+"|"+code)
	return nil
}

func (tt *testTransport) SendPhoto(_ context.Context, fileURL, _ string) error {
	tt.photos = append(tt.photos, fileURL)
	return nil
}

func (tt *testTransport) SendAudio(_ context.Context, a relay.Audio) error {
	tt.audios = append(tt.audios, a.URL)
	return nil
}

func (tt *testTransport) NotifyUploading(context.Context) error { return nil }

func (tt *testTransport) SendVideoFile(context.Context, string, media.Stats) error { return nil }

func (tt *testTransport) SendStatus(context.Context, string) (int, error) { return 1, nil }

func (tt *testTransport) EditStatus(context.Context, int, string) error { return nil }

func (tt *testTransport) DeleteStatus(context.Context, int) error { return nil }

func testBot(tr download.Transport) *Bot {
	b := &Bot{
		inspector:      inspect.NewClient(inspect.Options{}),
		platformSuffix: "tiktok.com",
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	b.senderFor = func(*tgbotapi.Message) download.Transport { return tr }
	return b
}

func message(text string, entities ...tgbotapi.MessageEntity) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		Chat:      &tgbotapi.Chat{ID: 99, Type: "private"},
		Text:      text,
		Entities:  entities,
	}
}

func TestRouteMessageNoURL(t *testing.T) {
	b := testBot(&testTransport{})
	err := b.routeMessage(context.Background(), message("hello there"))
	if !errors.Is(err, ErrNoURL) {
		t.Fatalf("err = %v, want ErrNoURL", err)
	}
}

func TestRouteMessageMalformedEntity(t *testing.T) {
	b := testBot(&testTransport{})
	err := b.routeMessage(context.Background(), message("x", urlEntity(0, 99)))
	if err == nil || !strings.Contains(err.Error(), "outside the message") {
		t.Fatalf("err = %v, want entity range error", err)
	}
}

func TestRouteMessageEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "unit")
		w.Write([]byte("<html><body>plain page</body></html>"))
	}))
	defer srv.Close()

	target := srv.URL + "/a?x=1"
	text := "see " + target
	tr := &testTransport{}
	b := testBot(tr)

	err := b.routeMessage(context.Background(), message(text, urlEntity(4, len(target))))
	if err != nil {
		t.Fatal(err)
	}

	// Exactly one summary reply plus one header chunk, no platform relay.
	if len(tr.texts) != 1 {
		t.Fatalf("texts = %v", tr.texts)
	}
	if !strings.Contains(tr.texts[0], "Without query: "+srv.URL+"/a") {
		t.Errorf("summary missing canonical form: %q", tr.texts[0])
	}
	if !strings.Contains(tr.texts[0], "Body is a string with length 36") {
		t.Errorf("summary missing body line: %q", tr.texts[0])
	}
	if strings.Contains(tr.texts[0], "Redirect history") {
		t.Errorf("summary reports redirects for a direct fetch: %q", tr.texts[0])
	}
	if len(tr.codes) != 1 || !strings.Contains(tr.codes[0], "server: unit") {
		t.Errorf("codes = %v", tr.codes)
	}
	if len(tr.photos)+len(tr.audios) != 0 {
		t.Error("platform relay ran for a non-platform host")
	}
}

func TestRouteMessageFailureIsolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// First URL points at a closed port, second at the live server. The
	// failing URL must be reported and the healthy one still inspected.
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	live := srv.URL + "/ok"
	text := deadURL + " " + live
	tr := &testTransport{}
	b := testBot(tr)

	err := b.routeMessage(context.Background(), message(text,
		urlEntity(0, len(deadURL)),
		urlEntity(len(deadURL)+1, len(live)),
	))
	if err != nil {
		t.Fatal(err)
	}

	var failureReported, liveInspected bool
	for _, txt := range tr.texts {
		if strings.Contains(txt, "HTTP GET request failed") {
			failureReported = true
		}
		if strings.Contains(txt, "Body is a string with length 2") {
			liveInspected = true
		}
	}
	if !failureReported {
		t.Errorf("dead URL failure not reported: %v", tr.texts)
	}
	if !liveInspected {
		t.Errorf("live URL not inspected after sibling failure: %v", tr.texts)
	}
}

func TestRouteMessageReportSendFailurePropagates(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	tr := &testTransport{fail: true}
	b := testBot(tr)

	err := b.routeMessage(context.Background(), message(deadURL, urlEntity(0, len(deadURL))))
	if err == nil || !strings.Contains(err.Error(), "report inspection error") {
		t.Fatalf("err = %v, want report failure", err)
	}
}
