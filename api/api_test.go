package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openclaw/qrgen/qr"
)

func newTestServer(t *testing.T, limiter *IPLimiter) *httptest.Server {
	t.Helper()
	return newProxiedTestServer(t, limiter, false)
}

func newProxiedTestServer(t *testing.T, limiter *IPLimiter, trustProxy bool) *httptest.Server {
	t.Helper()
	h := NewRouter(&Server{
		Renderer:     qr.New(qr.DefaultOptions()),
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:      "test",
		MaxBodyBytes: 8 << 10,
		Limiter:      limiter,
		TrustProxy:   trustProxy,
	})
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(b)
}

func decodeDataURL(t *testing.T, s string) ([]byte, image.Image) {
	t.Helper()
	if !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Fatalf("missing data URL prefix: %.40q", s)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return raw, img
}

func pixelColors(img image.Image) map[color.RGBA]bool {
	out := map[color.RGBA]bool{}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out[color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)] = true
		}
	}
	return out
}

func TestIndex(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type = %q", ct)
	}
	for _, want := range []string{"<form", `name="data"`, `name="fg_color"`, `name="bg_color"`, "/generate"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestGenerateDefaults(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := post(t, ts, `{"data":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type = %q", ct)
	}
	_, img := decodeDataURL(t, body)

	w := img.Bounds().Dx()
	if w != img.Bounds().Dy() || w%10 != 0 {
		t.Fatalf("bad dimensions %v", img.Bounds())
	}
	if modules := w/10 - 2*qr.QuietZone; modules < 21 || (modules-17)%4 != 0 {
		t.Fatalf("%d modules is not a valid symbol size", modules)
	}

	colors := pixelColors(img)
	black := color.RGBA{0, 0, 0, 0xff}
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	if len(colors) != 2 || !colors[black] || !colors[white] {
		t.Fatalf("colors = %v, want black and white", colors)
	}
}

func TestGenerateCustomColors(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, body := post(t, ts, `{"data":"hello","fg_color":"#ff0000","bg_color":"#00ff00"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	_, img := decodeDataURL(t, body)
	colors := pixelColors(img)
	red := color.RGBA{0xff, 0, 0, 0xff}
	green := color.RGBA{0, 0xff, 0, 0xff}
	if len(colors) != 2 || !colors[red] || !colors[green] {
		t.Fatalf("colors = %v, want red and green", colors)
	}
}

func TestGenerateCSSColorForms(t *testing.T) {
	ts := newTestServer(t, nil)
	red := color.RGBA{0xff, 0, 0, 0xff}
	for _, fg := range []string{"hsl(0, 100%, 50%)", "rgb(100%, 0%, 0%)", "red"} {
		t.Run(fg, func(t *testing.T) {
			body, _ := json.Marshal(generateRequest{Data: "hello", FGColor: fg, BGColor: "rebeccapurple"})
			resp, out := post(t, ts, string(body))
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d: %s", resp.StatusCode, out)
			}
			_, img := decodeDataURL(t, out)
			if colors := pixelColors(img); !colors[red] || !colors[color.RGBA{0x66, 0x33, 0x99, 0xff}] {
				t.Fatalf("colors = %v", colors)
			}
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ts := newTestServer(t, nil)
	in := `{"data":"https://example.com","fg_color":"navy","bg_color":"#fafafa"}`
	_, a := post(t, ts, in)
	_, b := post(t, ts, in)
	rawA, _ := decodeDataURL(t, a)
	rawB, _ := decodeDataURL(t, b)
	if !bytes.Equal(rawA, rawB) {
		t.Fatal("identical requests produced different PNG bytes")
	}
}

func TestGenerateErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing data", `{"fg_color":"black"}`, http.StatusBadRequest},
		{"empty data", `{"data":""}`, http.StatusBadRequest},
		{"not json", `data=hello`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"wrong type", `{"data":42}`, http.StatusBadRequest},
		{"bad fg color", `{"data":"x","fg_color":"not-a-color"}`, http.StatusInternalServerError},
		{"bad bg color", `{"data":"x","bg_color":"#12345"}`, http.StatusInternalServerError},
		{"content too long", `{"data":"` + strings.Repeat("x", 3000) + `"}`, http.StatusInternalServerError},
		{"body too large", `{"data":"` + strings.Repeat("x", 10000) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestGenerateMethod(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/generate")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if got["error"] == "" {
		t.Fatalf("body = %v, want error message", got)
	}
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Version != "test" {
		t.Fatalf("status = %+v", got)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	ts := newTestServer(t, NewIPLimiter(0.001, 2))
	for i := 0; i < 2; i++ {
		if resp, body := post(t, ts, `{"data":"hi"}`); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d: %s", i, resp.StatusCode, body)
		}
	}
	resp, _ := post(t, ts, `{"data":"hi"}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}

	// The page is not throttled.
	page, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", page.StatusCode)
	}
}

func TestIPLimiter(t *testing.T) {
	if NewIPLimiter(0, 5) != nil {
		t.Fatal("zero rate should disable the limiter")
	}

	now := time.Unix(1000, 0)
	l := NewIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || l.Allow("a") {
		t.Fatal("burst of 1 not enforced")
	}
	if !l.Allow("b") {
		t.Fatal("clients must not share a bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("token not refilled after one second")
	}
}

func postFrom(t *testing.T, ts *httptest.Server, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/generate", strings.NewReader(`{"data":"hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimitIgnoresForwardingHeaders(t *testing.T) {
	l := NewIPLimiter(0.001, 1)
	ts := newTestServer(t, l)
	if code := postFrom(t, ts, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request: status = %d", code)
	}
	for i := 2; i < 20; i++ {
		if code := postFrom(t, ts, fmt.Sprintf("10.0.0.%d", i)); code != http.StatusTooManyRequests {
			t.Fatalf("request with rotated header %d: status = %d, want 429", i, code)
		}
	}
	if l.Len() != 1 {
		t.Fatalf("tracked clients = %d, want 1", l.Len())
	}
}

func TestRateLimitTrustedProxy(t *testing.T) {
	ts := newProxiedTestServer(t, NewIPLimiter(0.001, 1), true)
	if code := postFrom(t, ts, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if code := postFrom(t, ts, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("same forwarded client: status = %d, want 429", code)
	}
	if code := postFrom(t, ts, "10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other forwarded client: status = %d", code)
	}
}

func TestIPLimiterBounded(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewIPLimiter(0.001, 1)
	l.now = func() time.Time { return now }
	l.maxClients = 3

	if !l.Allow("a") {
		t.Fatal("first request denied")
	}
	for _, ip := range []string{"b", "c", "d", "e"} {
		l.Allow(ip)
	}
	if l.Len() != 3 {
		t.Fatalf("tracked clients = %d, want 3", l.Len())
	}
	// "a" was evicted as least recently seen, so it starts with a fresh bucket.
	if !l.Allow("a") {
		t.Fatal("evicted client should get a new bucket")
	}
	// "e" is still tracked and has spent its token.
	if l.Allow("e") {
		t.Fatal("recent client lost its bucket")
	}
}
